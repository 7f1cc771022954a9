package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/llm/provider"
)

var _ = Describe("New", func() {
	DescribeTable("builds the named provider",
		func(cfg provider.Config, wantName string) {
			m, err := provider.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name()).To(Equal(wantName))
			Expect(m.ModelID()).To(Equal(cfg.Model))
		},
		Entry("gemini", provider.Config{Provider: "gemini", Model: "gemini-1.5-flash-preview-0514"}, "gemini"),
		Entry("empty defaults to gemini", provider.Config{Model: "gemini-1.5-flash-preview-0514"}, "gemini"),
		Entry("vertex", provider.Config{Provider: "vertex", Model: "gemini-1.5-flash-preview-0514", Project: "p"}, "vertex"),
		Entry("ollama", provider.Config{Provider: "ollama", Model: "llama3.2"}, "ollama"),
	)

	It("rejects an unknown provider", func() {
		_, err := provider.New(provider.Config{Provider: "openai", Model: "gpt-4o"})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider "openai"`)))
	})

	It("requires a model name", func() {
		_, err := provider.New(provider.Config{Provider: "gemini"})
		Expect(err).To(MatchError(ContainSubstring("model name is required")))
	})

	It("propagates vertex configuration errors", func() {
		_, err := provider.New(provider.Config{Provider: "vertex", Model: "m"})
		Expect(err).To(MatchError(ContainSubstring("project is required")))
	})
})
