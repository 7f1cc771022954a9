package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/logger"
)

func newTestRelay(model *fakeModel, config Config) (*Relay, *recordingPublisher) {
	publisher := &recordingPublisher{}
	r, err := New(config, model, publisher, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return r, publisher
}

// do sends req through the fiber app and returns status and full body.
func do(r *Relay, req *http.Request) (int, string) {
	resp, err := r.server.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, string(body)
}

func postQuery(path, rawQuery string) *http.Request {
	target := path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return httptest.NewRequest(http.MethodPost, target, nil)
}

var _ = Describe("Relay", func() {
	var (
		model     *fakeModel
		r         *Relay
		publisher *recordingPublisher
	)

	BeforeEach(func() {
		model = &fakeModel{
			answer: "Baseball is a bat-and-ball sport.",
			chunks: []string{"Gravity", " pulls", " objects."},
		}
		r, publisher = newTestRelay(model, Config{ListenAddr: ":0"})
	})

	AfterEach(func() {
		r.Close()
	})

	Describe("New", func() {
		It("requires a model", func() {
			_, err := New(Config{}, nil, &recordingPublisher{}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("model is required")))
		})

		It("requires a publisher", func() {
			_, err := New(Config{}, model, nil, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("event publisher is required")))
		})
	})

	Describe("GET /", func() {
		It("returns exactly Hello", func() {
			resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal("Hello"))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/plain"))
		})
	})

	Describe("POST /run", func() {
		It("returns the model's answer verbatim", func() {
			status, body := do(r, postQuery("/run", "message="+url.QueryEscape("What is baseball?")))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(Equal("Baseball is a bat-and-ball sport."))
		})

		It("substitutes the default prompt when message is omitted", func() {
			status, _ := do(r, postQuery("/run", ""))
			Expect(status).To(Equal(http.StatusOK))
			Expect(model.Prompts()).To(Equal([]string{"What is baseball?"}))
		})

		It("sends an explicitly empty message upstream unchanged", func() {
			status, _ := do(r, postQuery("/run", "message="))
			Expect(status).To(Equal(http.StatusOK))
			Expect(model.Prompts()).To(Equal([]string{""}))
		})

		It("does not trim the message", func() {
			do(r, postQuery("/run", "message="+url.QueryEscape("  spaced  ")))
			Expect(model.Prompts()).To(Equal([]string{"  spaced  "}))
		})

		It("reads the message from a url-encoded form body", func() {
			req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader("message=from+form"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			status, _ := do(r, req)
			Expect(status).To(Equal(http.StatusOK))
			Expect(model.Prompts()).To(Equal([]string{"from form"}))
		})

		It("prefers the query string over the form body", func() {
			req := httptest.NewRequest(http.MethodPost, "/run?message=query", strings.NewReader("message=form"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			do(r, req)
			Expect(model.Prompts()).To(Equal([]string{"query"}))
		})

		It("uses a configured default prompt", func() {
			custom, _ := newTestRelay(model, Config{DefaultPrompt: "Why is the sky blue?"})
			defer custom.Close()

			do(custom, postQuery("/run", ""))
			Expect(model.Prompts()).To(Equal([]string{"Why is the sky blue?"}))
		})

		It("maps a provider HTTP error to 502 with a JSON error body", func() {
			model.invokeErr = &llm.APIError{Provider: "fake", StatusCode: http.StatusTooManyRequests, Message: "quota"}

			status, body := do(r, postQuery("/run", ""))
			Expect(status).To(Equal(http.StatusBadGateway))

			var errResp llm.ErrorResponse
			Expect(json.Unmarshal([]byte(body), &errResp)).To(Succeed())
			Expect(errResp.Error).To(ContainSubstring("quota"))
		})

		It("preserves an upstream 5xx status", func() {
			model.invokeErr = &llm.APIError{Provider: "fake", StatusCode: http.StatusServiceUnavailable}

			status, _ := do(r, postQuery("/run", ""))
			Expect(status).To(Equal(http.StatusServiceUnavailable))
		})

		It("maps other failures to 500", func() {
			model.invokeErr = errors.New("dial tcp: connection refused")

			status, _ := do(r, postQuery("/run", ""))
			Expect(status).To(Equal(http.StatusInternalServerError))
		})

		It("logs an operator hint when the provider rejects the credential", func() {
			var logs bytes.Buffer
			model.invokeErr = &llm.APIError{Provider: "fake", StatusCode: http.StatusUnauthorized, Message: "API key not valid"}
			logged, err := New(Config{}, model, &recordingPublisher{}, logger.New(logger.WithWriter(&logs), logger.WithJSON(true)))
			Expect(err).NotTo(HaveOccurred())
			defer logged.Close()

			status, _ := do(logged, postQuery("/run", ""))
			Expect(status).To(Equal(http.StatusBadGateway))
			Expect(logs.String()).To(ContainSubstring(`"hint":"the provider rejected the credential`))
		})

		It("calls the model exactly once per request", func() {
			do(r, postQuery("/run", "message=a"))
			do(r, postQuery("/run", "message=b"))
			Expect(model.Prompts()).To(Equal([]string{"a", "b"}))
		})

		It("publishes a completion event", func() {
			do(r, postQuery("/run", "message=hi"))

			Eventually(publisher.Events).Should(HaveLen(1))
			event := publisher.Events()[0]
			Expect(event.Relay.Route).To(Equal("/run"))
			Expect(event.Relay.Status).To(Equal(eventstream.StatusOK))
			Expect(event.Prompt).To(Equal("hi"))
			Expect(event.Answer).To(Equal("Baseball is a bat-and-ball sport."))
			Expect(event.Source.Provider).To(Equal("fake"))
		})
	})

	Describe("POST /run_stream", func() {
		It("writes every chunk followed by the separator, in order", func() {
			status, body := do(r, postQuery("/run_stream", "message=gravity"))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(Equal("Gravity" + Separator + " pulls" + Separator + " objects." + Separator))
		})

		It("produces segments whose concatenation is the full answer", func() {
			_, body := do(r, postQuery("/run_stream", ""))

			segments := strings.Split(strings.TrimSuffix(body, Separator), Separator)
			Expect(segments).To(HaveLen(len(model.chunks)))
			Expect(strings.Join(segments, "")).To(Equal(strings.Join(model.chunks, "")))
		})

		It("writes an empty body for an empty stream", func() {
			model.chunks = nil
			status, body := do(r, postQuery("/run_stream", ""))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(BeEmpty())
		})

		It("substitutes the default prompt when message is omitted", func() {
			do(r, postQuery("/run_stream", ""))
			Expect(model.Prompts()).To(Equal([]string{"What is baseball?"}))
		})

		It("sends an explicitly empty message upstream unchanged", func() {
			do(r, postQuery("/run_stream", "message="))
			Expect(model.Prompts()).To(Equal([]string{""}))
		})

		It("uses chunked transfer encoding", func() {
			resp, err := r.server.Test(postQuery("/run_stream", ""), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			_, _ = io.ReadAll(resp.Body)

			Expect(resp.TransferEncoding).To(ContainElement("chunked"))
			Expect(resp.ContentLength).To(Equal(int64(-1)))
		})

		It("fails with 5xx when the provider refuses to open the stream", func() {
			model.openErr = &llm.APIError{Provider: "fake", StatusCode: http.StatusUnauthorized, Message: "API key not valid"}

			status, body := do(r, postQuery("/run_stream", ""))
			Expect(status).To(Equal(http.StatusBadGateway))
			Expect(body).To(ContainSubstring("API key not valid"))
		})

		It("terminates the body abruptly on a mid-stream fault", func() {
			model.faultAfter = errors.New("upstream connection reset")

			resp, err := r.server.Test(postQuery("/run_stream", ""), -1)
			if err == nil {
				defer resp.Body.Close()
				_, err = io.ReadAll(resp.Body)
			}
			Expect(err).To(HaveOccurred())
		})

		It("publishes a completion event with the chunk count", func() {
			do(r, postQuery("/run_stream", ""))

			Eventually(publisher.Events).Should(HaveLen(1))
			event := publisher.Events()[0]
			Expect(event.Relay.Route).To(Equal("/run_stream"))
			Expect(event.Relay.Streaming).To(BeTrue())
			Expect(event.Relay.Chunks).To(Equal(3))
			Expect(event.Answer).To(Equal("Gravity pulls objects."))
		})

		It("records a faulted stream", func() {
			model.faultAfter = errors.New("upstream connection reset")
			resp, err := r.server.Test(postQuery("/run_stream", ""), -1)
			if err == nil {
				_, _ = io.ReadAll(resp.Body)
				resp.Body.Close()
			}

			Eventually(publisher.Events).Should(HaveLen(1))
			event := publisher.Events()[0]
			Expect(event.Relay.Status).To(Equal(eventstream.StatusFaulted))
			Expect(event.Relay.Error).To(ContainSubstring("connection reset"))
		})
	})

	Describe("unknown routes", func() {
		It("are not served", func() {
			status, _ := do(r, httptest.NewRequest(http.MethodGet, "/mcp", nil))
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})
})

var _ = DescribeTable("providerHint",
	func(err error, want string) {
		if want == "" {
			Expect(providerHint(err)).To(BeEmpty())
			return
		}
		Expect(providerHint(err)).To(ContainSubstring(want))
	},
	Entry("forbidden", &llm.APIError{StatusCode: http.StatusForbidden}, "relay auth"),
	Entry("rate limited", &llm.APIError{StatusCode: http.StatusTooManyRequests}, "quota"),
	Entry("quota status code", &llm.APIError{StatusCode: http.StatusBadRequest, Code: "RESOURCE_EXHAUSTED"}, "quota"),
	Entry("other failures", errors.New("boom"), ""),
)
