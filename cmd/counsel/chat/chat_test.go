package chatcmder

import (
	"bytes"
	"context"
	"net"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/devserver"
	"github.com/papercomputeco/counsel/pkg/history/inmemory"
	"github.com/papercomputeco/counsel/pkg/history/recorder"
	"github.com/papercomputeco/counsel/pkg/logger"
)

var _ = Describe("resolveInput", func() {
	suggestions := []string{"What deadlines apply?", "Who bears the costs?"}

	It("passes questions through", func() {
		Expect(resolveInput("Is this legal?", suggestions)).To(Equal("Is this legal?"))
	})

	It("picks suggested questions by number", func() {
		Expect(resolveInput("/2", suggestions)).To(Equal("Who bears the costs?"))
	})

	It("rejects out-of-range numbers", func() {
		_, err := resolveInput("/3", suggestions)
		Expect(err).To(MatchError(ContainSubstring("no suggested question 3")))

		_, err = resolveInput("/1", nil)
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown commands", func() {
		_, err := resolveInput("/help", suggestions)
		Expect(err).To(MatchError(ContainSubstring(`unknown command "/help"`)))
	})
})

var _ = Describe("repl", func() {
	var (
		asker     *cmdutil.Asker
		store     *inmemory.Driver
		rec       *recorder.Recorder
		out, errs *bytes.Buffer
	)

	BeforeEach(func() {
		server := devserver.NewServer(devserver.Config{}, logger.Nop())
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() {
			_ = server.Serve(ln)
		}()
		DeferCleanup(server.Shutdown)

		client, err := chat.NewClient(chat.Config{
			Endpoint: "http://" + ln.Addr().String() + devserver.DefaultChatPath,
		})
		Expect(err).NotTo(HaveOccurred())

		store = inmemory.NewDriver()
		rec, err = recorder.New(&recorder.Config{Driver: store})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rec.Close)

		out = &bytes.Buffer{}
		errs = &bytes.Buffer{}
		asker = &cmdutil.Asker{Client: client, Recorder: rec, Out: out, Err: errs}
	})

	// run drives the session and drains the recorder.
	run := func(lines ...string) error {
		in := strings.NewReader(strings.Join(lines, "\n") + "\n")
		err := repl(context.Background(), in, out, asker, "en")
		rec.Close()
		return err
	}

	It("asks each line and follows suggested questions", func() {
		Expect(run("What is a lease?", "/1", "/exit", "never asked")).To(Succeed())

		exchanges, err := store.List(context.Background(), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(exchanges).To(HaveLen(2))

		questions := []string{exchanges[0].Question, exchanges[1].Question}
		Expect(questions).To(ConsistOf("What is a lease?", "What deadlines apply?"))
		Expect(out.String()).NotTo(ContainSubstring("never asked"))
	})

	It("reports failed questions and keeps going", func() {
		Expect(run("boom "+devserver.MarkerError, "", "/7", "still here?")).To(Succeed())

		Expect(errs.String()).To(ContainSubstring(devserver.ScriptedErrorMessage))
		Expect(errs.String()).To(ContainSubstring("no suggested question 7"))

		exchanges, err := store.List(context.Background(), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(exchanges).To(HaveLen(1))
		Expect(exchanges[0].Question).To(Equal("still here?"))
	})

	It("ends at EOF", func() {
		Expect(repl(context.Background(), strings.NewReader(""), out, asker, "en")).To(Succeed())
		rec.Close()
	})
})
