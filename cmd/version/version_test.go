package versioncmder

import (
	"bytes"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/utils"
)

var _ = Describe("NewVersionCmd", func() {
	It("prints the build information", func() {
		cmd := NewVersionCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		text := ansi.Strip(out.String())
		Expect(text).To(ContainSubstring("Version: " + utils.Version))
		Expect(text).To(ContainSubstring("Sha: " + utils.Sha))
		Expect(text).To(ContainSubstring("Built at: " + utils.Buildtime))
	})
})
