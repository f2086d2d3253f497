package main

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestParseChannels(t *testing.T) {
	channels, err := parseChannels("0, 1,15")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, channels, test.ShouldResemble, []int{0, 1, 15})

	_, err = parseChannels("0,one")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseTarget(t *testing.T) {
	target, err := parseTarget("100, 0, -30")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, target, test.ShouldResemble, r3.Vector{X: 100, Y: 0, Z: -30})

	_, err = parseTarget("1,2")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseTarget("")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseTarget("a,b,c")
	test.That(t, err, test.ShouldNotBeNil)
}
