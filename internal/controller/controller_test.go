package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCommand(t *testing.T) {
	name, args := BuildCommand("/opt/apps/orders.jar")
	assert.Equal(t, "java", name)
	assert.Equal(t, []string{"-jar", "/opt/apps/orders.jar"}, args)

	name, args = BuildCommand("/opt/apps/worker.sh")
	assert.Equal(t, "sh", name)
	assert.Equal(t, []string{"/opt/apps/worker.sh"}, args)

	name, args = BuildCommand("/opt/apps/Orders.JAR")
	assert.Equal(t, "java", name)
	assert.Equal(t, []string{"-jar", "/opt/apps/Orders.JAR"}, args)

	name, args = BuildCommand("/usr/local/bin/service")
	assert.Equal(t, "/usr/local/bin/service", name)
	assert.Empty(t, args)
}
