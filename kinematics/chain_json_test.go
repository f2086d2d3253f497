package kinematics

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestUnmarshalChainJSON(t *testing.T) {
	jsonData := []byte(`{
		"name": "gaze",
		"joints": [
			{"d": 0, "alpha": 1.5707963267948966, "r": 32.2},
			{"d": 0, "alpha": 0, "r": 48.6},
			{"d": 0, "alpha": 0, "r": 113.713}
		]
	}`)

	chain, err := UnmarshalChainJSON(jsonData)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.DOF(), test.ShouldEqual, 3)

	pos := chain.ForwardKinematics()
	test.That(t, pos.X, test.ShouldAlmostEqual, 194.513, 1e-3)

	t.Run("no joints", func(t *testing.T) {
		_, err := UnmarshalChainJSON([]byte(`{"name": "empty"}`))
		test.That(t, err, test.ShouldBeError, ErrNoChainInformation)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := UnmarshalChainJSON([]byte(`{`))
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestParseChainJSONFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "chain.json")
	jsonData := []byte(`{"name": "test", "joints": [{"d": 1, "alpha": 0, "r": 2}]}`)
	test.That(t, os.WriteFile(filename, jsonData, 0o600), test.ShouldBeNil)

	chain, err := ParseChainJSONFile(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.DOF(), test.ShouldEqual, 1)

	_, err = ParseChainJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
