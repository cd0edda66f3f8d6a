package loadstep_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLoadstep(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Loadstep Suite")
}
