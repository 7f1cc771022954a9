package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir   string
		origDir  string
		origHome string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		origHome = os.Getenv("HOME")
		Expect(os.Setenv("HOME", filepath.Join(tmpDir, "home"))).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("returns the override dir when provided", func() {
			override := filepath.Join(tmpDir, "custom")

			result, err := dotdir.NewManager().Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(override))

			info, err := os.Stat(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the override over a local .relay dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, dotdir.DirName), 0o755)).To(Succeed())
			override := filepath.Join(tmpDir, "custom")

			result, err := dotdir.NewManager().Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(override))
		})

		It("returns the local .relay dir when it exists", func() {
			local := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			result, err := dotdir.NewManager().Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to and creates ~/.relay", func() {
			result, err := dotdir.NewManager().Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(tmpDir, "home", dotdir.DirName)))

			_, err = os.Stat(result)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
