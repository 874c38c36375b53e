package history_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/history"
)

var _ = Describe("NewExchange", func() {
	It("copies the completed result", func() {
		result := &chat.Result{
			SessionID: "s-1",
			Messages: []chat.Message{
				{ID: "m", Content: "Answer", Sender: chat.SenderAssistant, SessionID: "s-1"},
			},
			Sources:            []chat.Source{{Source: "Zákon", ArticleNumber: "1"}},
			SuggestedQuestions: []string{"Next?"},
		}

		ex := history.NewExchange("Question?", "cs", result)
		Expect(ex.ID).NotTo(BeEmpty())
		Expect(ex.SessionID).To(Equal("s-1"))
		Expect(ex.Question).To(Equal("Question?"))
		Expect(ex.Answer).To(Equal("Answer"))
		Expect(ex.Language).To(Equal("cs"))
		Expect(ex.Sources).To(Equal(result.Sources))
		Expect(ex.SuggestedQuestions).To(Equal([]string{"Next?"}))
		Expect(ex.CreatedAt).To(BeTemporally("~", time.Now(), time.Second))
	})

	It("tolerates a nil result", func() {
		ex := history.NewExchange("q", "en", nil)
		Expect(ex.Answer).To(BeEmpty())
	})
})

var _ = Describe("NotFoundError", func() {
	It("matches ErrNotFound", func() {
		err := error(history.NotFoundError{ID: "abc"})
		Expect(errors.Is(err, history.ErrNotFound)).To(BeTrue())
		Expect(err.Error()).To(Equal("exchange not found: abc"))
	})
})
