package devserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/logger"
	"github.com/papercomputeco/counsel/pkg/sse"
	"github.com/papercomputeco/counsel/pkg/voice"
)

// startServer serves s on a loopback listener and returns its base URL.
func startServer(s *Server) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	go func() {
		_ = s.Serve(ln)
	}()
	DeferCleanup(func() {
		_ = s.Shutdown()
	})

	return "http://" + ln.Addr().String()
}

func chatRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, DefaultChatPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("Script", func() {
	events := func(raw []byte) []sse.Event {
		d := sse.NewDecoder()
		evs := d.Write(raw)
		d.Close()
		return evs
	}

	It("streams session, messages and completion", func() {
		evs := events(Script(chat.Request{Query: "Mohu dát výpověď?", Language: "cs"}))

		Expect(evs[0].Type).To(Equal(chat.EventSessionID))
		Expect(evs[len(evs)-1].Type).To(Equal(chat.EventComplete))
		for _, ev := range evs[1 : len(evs)-1] {
			Expect(ev.Type).To(Equal(chat.EventMessage))
		}
	})

	It("ends with an error event for the error marker", func() {
		evs := events(Script(chat.Request{Query: "x " + MarkerError}))
		Expect(evs[len(evs)-1].Type).To(Equal(chat.EventError))
		Expect(evs[len(evs)-1].Data).To(ContainSubstring(ScriptedErrorMessage))
	})

	It("omits the completion for the truncate marker", func() {
		evs := events(Script(chat.Request{Query: "x " + MarkerTruncate}))
		for _, ev := range evs {
			Expect(ev.Type).NotTo(Equal(chat.EventComplete))
		}
	})

	It("falls back to English for unknown languages", func() {
		Expect(ScriptedAnswer(chat.Request{Query: "q", Language: "xx"})).To(HavePrefix("Regarding"))
	})
})

var _ = Describe("Server", func() {
	var server *Server

	BeforeEach(func() {
		server = NewServer(Config{ListenAddr: ":0"}, logger.Nop())
	})

	Describe("handlers", func() {
		It("answers ping", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("streams an SSE body", func() {
			resp, err := server.app.Test(chatRequest(`{"query":"hello","language":"en"}`), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("event: complete"))
		})

		It("rejects an empty query", func() {
			resp, err := server.app.Test(chatRequest(`{"query":"  "}`), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("requires the configured token", func() {
			server = NewServer(Config{Token: "secret"}, logger.Nop())

			resp, err := server.app.Test(chatRequest(`{"query":"q"}`), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

			req := chatRequest(`{"query":"q"}`)
			req.Header.Set("Authorization", "Bearer secret")
			resp, err = server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects a voice upload that is not WAV", func() {
			var body bytes.Buffer
			form := multipart.NewWriter(&body)
			part, err := form.CreateFormFile("file", "recording.wav")
			Expect(err).NotTo(HaveOccurred())
			_, _ = part.Write([]byte("definitely not audio"))
			Expect(form.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, DefaultVoicePath, &body)
			req.Header.Set("Content-Type", form.FormDataContentType())

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))
		})
	})

	Describe("with the real clients", func() {
		var base string

		BeforeEach(func() {
			server = NewServer(Config{ChunkSize: 3}, logger.Nop())
			base = startServer(server)
		})

		newChatClient := func() *chat.Client {
			c, err := chat.NewClient(chat.Config{Endpoint: base + DefaultChatPath})
			Expect(err).NotTo(HaveOccurred())
			return c
		}

		It("completes a chat over 3-byte writes that split characters", func() {
			req := chat.Request{Query: "Mohu dát výpověď?", Language: "cs"}

			var partials []string
			result, err := newChatClient().SendMessage(context.Background(), req.Query, req.Language,
				chat.WithPartial(func(t string) { partials = append(partials, t) }))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Answer()).To(Equal(ScriptedAnswer(req)))
			Expect(result.SessionID).NotTo(BeEmpty())
			Expect(result.Sources).To(Equal(scriptedSources["cs"]))
			Expect(result.SuggestedQuestions).To(Equal(scriptedSuggestions["cs"]))
			Expect(partials).NotTo(BeEmpty())
			Expect(partials[len(partials)-1]).To(Equal(ScriptedAnswer(req)))
		})

		It("surfaces the scripted server error", func() {
			_, err := newChatClient().SendMessage(context.Background(), "q "+MarkerError, "en")

			var serverErr *chat.ServerError
			Expect(errors.As(err, &serverErr)).To(BeTrue())
			Expect(serverErr.Message).To(Equal(ScriptedErrorMessage))
		})

		It("reports a truncated stream as incomplete", func() {
			_, err := newChatClient().SendMessage(context.Background(), "q "+MarkerTruncate, "en")
			Expect(err).To(MatchError(chat.ErrIncomplete))

			var partial *chat.PartialError
			Expect(errors.As(err, &partial)).To(BeTrue())
			Expect(partial.Text).NotTo(BeEmpty())
		})

		It("echoes a voice recording", func() {
			wav, err := voice.EncodePCMToWav(voice.PCMBuffer{SampleRate: 8000, Channels: [][]float32{{0, 0.5}}})
			Expect(err).NotTo(HaveOccurred())

			vc, err := voice.NewClient(voice.Config{Endpoint: base + "/api"})
			Expect(err).NotTo(HaveOccurred())

			reply, err := vc.Query(context.Background(), wav, "cs")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.ContentType).To(HavePrefix("audio/wav"))
			Expect(reply.Audio).To(Equal(wav))
		})
	})
})
