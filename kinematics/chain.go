// Package kinematics models a short serial chain of rotational joints
// described by Denavit-Hartenberg parameters and solves its forward and
// inverse kinematics. It is meant for small linkages like a robot's neck
// or gaze mechanism, not as a general motion-planning framework.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultMaxIterations caps the number of corrective passes one
	// InverseKinematics call may run.
	DefaultMaxIterations = 128
	// DefaultMaxError is the position error, in the chain's length units,
	// below which InverseKinematics considers the target reached.
	DefaultMaxError = 1.0
)

// projectionEpsilon guards the per-joint correction against targets lying
// on a joint's rotation axis, where the projection degenerates to a zero
// vector and cannot be normalized.
const projectionEpsilon = 1e-9

// DHParameters holds the modified Denavit-Hartenberg description of one
// link: how a joint's frame relates to the next one down the chain. They
// are fixed for the lifetime of a chain (they are the robot's shape).
type DHParameters struct {
	// D is the link offset along the previous joint's z axis.
	D float64 `json:"d"`
	// Alpha is the link twist about the new x axis, in radians.
	Alpha float64 `json:"alpha"`
	// R is the link length along the new x axis.
	R float64 `json:"r"`
}

// joint is the mutable state of one degree of freedom. origin and axis
// are world-frame caches refreshed by every forward-kinematics pass; they
// describe the point and direction the joint rotates about, before the
// joint's own rotation is applied.
type joint struct {
	angle  float64
	origin r3.Vector
	axis   r3.Vector
}

// Chain is an ordered serial chain of rotational joints, indexed from the
// base to the end effector. Its geometry is immutable; the joint angles
// are set directly or by the inverse-kinematics solver.
type Chain struct {
	parameters []DHParameters
	joints     []joint
}

// NewChain returns a chain with one joint per parameter set, all angles
// at zero.
func NewChain(parameters []DHParameters) *Chain {
	return &Chain{
		parameters: append([]DHParameters{}, parameters...),
		joints:     make([]joint, len(parameters)),
	}
}

// DOF returns the number of degrees of freedom of the chain.
func (c *Chain) DOF() int {
	return len(c.joints)
}

// Angles returns the current joint angles in radians, base first.
func (c *Chain) Angles() []float64 {
	angles := make([]float64, len(c.joints))
	for i := range c.joints {
		angles[i] = c.joints[i].angle
	}
	return angles
}

// SetAngles sets all joint angles at once, base first.
func (c *Chain) SetAngles(angles []float64) error {
	if len(angles) != len(c.joints) {
		return newDOFMismatchError(len(c.joints), len(angles))
	}
	for i, angle := range angles {
		c.joints[i].angle = angle
	}
	return nil
}

// ForwardKinematics returns the world position of the end effector for
// the current joint angles. As a side effect it refreshes every joint's
// cached world origin and rotation axis; callers must not assume those
// caches are valid without a preceding ForwardKinematics call.
func (c *Chain) ForwardKinematics() r3.Vector {
	accumulated := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})

	for i := range c.parameters {
		params := &c.parameters[i]
		jnt := &c.joints[i]

		// The joint rotates about the accumulated frame's z axis through
		// the accumulated frame's origin. Record both before folding in
		// this joint's own transform.
		jnt.origin = translationOf(accumulated)
		jnt.axis = r3.Vector{X: accumulated.At(0, 2), Y: accumulated.At(1, 2), Z: accumulated.At(2, 2)}

		sinTheta, cosTheta := math.Sincos(jnt.angle)
		sinAlpha, cosAlpha := math.Sincos(params.Alpha)

		// Rotation about z by the joint angle, then translation by d
		// along the incoming z.
		z := mat.NewDense(4, 4, []float64{
			cosTheta, -sinTheta, 0, 0,
			sinTheta, cosTheta, 0, 0,
			0, 0, 1, params.D,
			0, 0, 0, 1,
		})
		// Translation by r along the new x, then rotation about x by the
		// link twist.
		x := mat.NewDense(4, 4, []float64{
			1, 0, 0, params.R,
			0, cosAlpha, -sinAlpha, 0,
			0, sinAlpha, cosAlpha, 0,
			0, 0, 0, 1,
		})

		var link, next mat.Dense
		link.Mul(z, x)
		next.Mul(accumulated, &link)
		accumulated = &next
	}

	return translationOf(accumulated)
}

// InverseKinematics updates the joint angles so the end effector
// approaches target, using cyclic coordinate descent: in each pass every
// joint, from the one nearest the end effector back to the base, rotates
// by the single correction that best aligns the effector with the target
// in that joint's plane of motion.
//
// The solver runs at most maxIterations passes and stops early once the
// effector is within maxError of the target; non-positive values select
// DefaultMaxIterations and DefaultMaxError. It never fails: for an
// unreachable target it simply returns after the last pass, leaving the
// residual error inspectable through ForwardKinematics.
func (c *Chain) InverseKinematics(target r3.Vector, maxIterations int, maxError float64) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxError <= 0 {
		maxError = DefaultMaxError
	}

	effector := c.ForwardKinematics()
	for iteration := 0; iteration < maxIterations && effector.Sub(target).Norm() > maxError; iteration++ {
		for i := len(c.joints) - 1; i >= 0; i-- {
			c.joints[i].angle += signedJointCorrection(effector, target, &c.joints[i])
			// Later joints in this same pass must see the updated pose.
			effector = c.ForwardKinematics()
		}
	}
}

// signedJointCorrection returns the rotation to add to a joint's angle to
// bring the end effector as close to the target as that joint alone can.
// Both points are projected onto the joint's plane of rotation via cross
// products with its axis; the correction is the angle between the two
// projections, signed by which side of the plane their cross product
// falls on. If either point lies on the joint axis the projection
// degenerates and the correction is skipped for this pass.
func signedJointCorrection(effector, target r3.Vector, jnt *joint) float64 {
	u := jnt.axis.Cross(effector.Sub(jnt.origin))
	v := jnt.axis.Cross(target.Sub(jnt.origin))
	if u.Norm() < projectionEpsilon || v.Norm() < projectionEpsilon {
		return 0
	}

	u = u.Normalize()
	v = v.Normalize()
	// Guard against dot products a hair outside [-1, 1] from rounding.
	angle := math.Acos(math.Max(-1, math.Min(1, u.Dot(v))))

	if jnt.axis.Dot(u.Cross(v)) > 0 {
		return angle
	}
	return -angle
}

func translationOf(transform *mat.Dense) r3.Vector {
	return r3.Vector{X: transform.At(0, 3), Y: transform.At(1, 3), Z: transform.At(2, 3)}
}
