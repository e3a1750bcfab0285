package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePassed(t *testing.T) {
	r := ValidationResult{Checks: []ValidationCheck{
		InfoCheck(CheckSchemaValidity, "ok"),
		InfoCheck(CheckSpecVersion, "ok"),
	}}
	assert.True(t, r.ComputePassed())

	// Failed warnings never block.
	r.Add(WarnCheck(CheckDescriptionQuality, false, "boilerplate"))
	assert.True(t, r.ComputePassed())

	// A single failed error check blocks.
	r.Add(ErrorCheck(CheckCategoryValidity, "bad category"))
	assert.False(t, r.ComputePassed())
}

func TestComputePassedEmptyChecks(t *testing.T) {
	r := ValidationResult{}
	assert.True(t, r.ComputePassed())
}

func TestComputeEndpointsReachable(t *testing.T) {
	r := ValidationResult{Checks: []ValidationCheck{
		InfoCheck(CheckSchemaValidity, "ok"),
	}}
	// Vacuously true without endpoint checks.
	assert.True(t, r.ComputeEndpointsReachable())

	r.Add(InfoCheck(EndpointCheckName("GET", "/search"), "ok"))
	assert.True(t, r.ComputeEndpointsReachable())

	r.Add(WarnCheck(EndpointCheckName("GET", "/status"), false, "timeout"))
	assert.False(t, r.ComputeEndpointsReachable())
}

func TestEndpointReachabilityGateCountsAsEndpointCheck(t *testing.T) {
	// The aggregate gate shares the endpoint prefix with per-endpoint probes.
	gate := ErrorCheck(CheckEndpointReachability, "no endpoints")
	assert.True(t, gate.IsEndpointCheck())

	r := ValidationResult{Checks: []ValidationCheck{gate}}
	assert.False(t, r.ComputeEndpointsReachable())
}

func TestEndpointCheckName(t *testing.T) {
	assert.Equal(t, "endpoint:GET /search", EndpointCheckName("GET", "/search"))
	assert.True(t, ValidationCheck{Name: "endpoint:GET /search"}.IsEndpointCheck())
	assert.False(t, ValidationCheck{Name: CheckSchemaValidity}.IsEndpointCheck())
}

func TestCheckLookup(t *testing.T) {
	r := ValidationResult{Checks: []ValidationCheck{
		InfoCheck(CheckSchemaValidity, "first"),
		ErrorCheck(CheckSchemaValidity, "second"),
	}}
	c := r.Check(CheckSchemaValidity)
	assert.NotNil(t, c)
	assert.Equal(t, "first", c.Message)
	assert.Nil(t, r.Check("nonexistent"))
}
