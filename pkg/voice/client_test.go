package voice_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/counsel/pkg/voice"
)

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *voice.Client
		wavData []byte
	)

	BeforeEach(func() {
		var err error
		wavData, err = voice.EncodePCMToWav(voice.PCMBuffer{
			SampleRate: 16000,
			Channels:   [][]float32{{0, 0.25, -0.25}},
		})
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		client, err = voice.NewClient(voice.Config{Endpoint: server.URL + "/", AuthToken: "tok"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the recording and language as a multipart form", func() {
		var (
			gotPath, gotAuth, gotLanguage, gotFilename, gotPartType string
			gotAudio                                                []byte
		)
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
			gotLanguage = r.FormValue("language")

			f, hdr, err := r.FormFile("file")
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			gotFilename = hdr.Filename
			gotPartType = hdr.Header.Get("Content-Type")
			gotAudio, _ = io.ReadAll(f)

			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3-answer"))
		}

		reply, err := client.Query(context.Background(), wavData, "cs")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ContentType).To(Equal("audio/mpeg"))
		Expect(reply.Audio).To(Equal([]byte("ID3-answer")))

		Expect(gotPath).To(Equal("/voice-query"))
		Expect(gotAuth).To(Equal("Bearer tok"))
		Expect(gotLanguage).To(Equal("cs"))
		Expect(gotFilename).To(Equal("recording.wav"))
		Expect(gotPartType).To(Equal("audio/wav"))
		Expect(gotAudio).To(Equal(wavData))
	})

	It("returns a ResponseError for non-audio replies", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"detail":"no speech"}`))
		}

		_, err := client.Query(context.Background(), wavData, "en")
		var respErr *voice.ResponseError
		Expect(errors.As(err, &respErr)).To(BeTrue())
		Expect(respErr.StatusCode).To(Equal(http.StatusOK))
		Expect(respErr.Body).To(ContainSubstring("no speech"))
	})

	It("returns a ResponseError for non-2xx statuses", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}

		_, err := client.Query(context.Background(), wavData, "en")
		var respErr *voice.ResponseError
		Expect(errors.As(err, &respErr)).To(BeTrue())
		Expect(respErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("refuses to send empty audio", func() {
		_, err := client.Query(context.Background(), nil, "en")
		Expect(err).To(MatchError(voice.ErrEmptyAudio))
	})

	It("builds the query URL from the endpoint", func() {
		Expect(client.URL()).To(Equal(server.URL + "/voice-query"))
	})

	It("validates the endpoint", func() {
		_, err := voice.NewClient(voice.Config{})
		Expect(err).To(HaveOccurred())

		_, err = voice.NewClient(voice.Config{Endpoint: "ftp://example.com"})
		Expect(err).To(MatchError(ContainSubstring("http(s)")))
	})
})
