// Package historytest holds the behaviour every history.Driver must share,
// written as ginkgo specs that driver packages run against their own driver.
package historytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/history"
)

// NewExchange returns a populated exchange created at the given offset from
// a fixed base time.
func NewExchange(id string, offset time.Duration) *history.Exchange {
	return &history.Exchange{
		ID:        id,
		SessionID: "sess-" + id,
		Question:  "Question " + id,
		Answer:    "Podle § 2 platí… " + id,
		Language:  "cs",
		Sources: []chat.Source{
			{Source: "Občanský zákoník", ArticleNumber: "2"},
			{Source: "Zákoník práce", ArticleNumber: "52"},
		},
		SuggestedQuestions: []string{"Co dál?"},
		CreatedAt:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset),
	}
}

// DriverBehaviour registers the shared driver specs. newDriver is called
// before every spec and the returned driver is closed after it.
func DriverBehaviour(newDriver func() history.Driver) {
	var (
		driver history.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("stores and retrieves an exchange", func() {
			ex := NewExchange("a", 0)

			inserted, err := driver.Put(ctx, ex)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(ex))
		})

		It("is a no-op for a duplicate id", func() {
			_, err := driver.Put(ctx, NewExchange("a", 0))
			Expect(err).NotTo(HaveOccurred())

			dup := NewExchange("a", time.Hour)
			dup.Answer = "changed"
			inserted, err := driver.Put(ctx, dup)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Answer).NotTo(Equal("changed"))
		})

		It("round-trips empty sources and suggestions", func() {
			ex := NewExchange("bare", 0)
			ex.Sources = []chat.Source{}
			ex.SuggestedQuestions = []string{}

			_, err := driver.Put(ctx, ex)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "bare")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Sources).To(BeEmpty())
			Expect(got.SuggestedQuestions).To(BeEmpty())
		})

		It("returns a NotFoundError for a missing id", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(history.ErrNotFound))
			Expect(err).To(MatchError(history.NotFoundError{ID: "missing"}))
		})

		It("rejects nil and id-less exchanges", func() {
			_, err := driver.Put(ctx, nil)
			Expect(err).To(HaveOccurred())

			_, err = driver.Put(ctx, &history.Exchange{Question: "q"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i, id := range []string{"first", "second", "third"} {
				_, err := driver.Put(ctx, NewExchange(id, time.Duration(i)*time.Minute))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns exchanges newest first", func() {
			list, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0, len(list))
			for _, ex := range list {
				ids = append(ids, ex.ID)
			}
			Expect(ids).To(Equal([]string{"third", "second", "first"}))
		})

		It("honours the limit", func() {
			list, err := driver.List(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal("third"))
		})
	})

	Describe("Clear", func() {
		It("removes everything and reports the count", func() {
			for _, id := range []string{"x", "y"} {
				_, err := driver.Put(ctx, NewExchange(id, 0))
				Expect(err).NotTo(HaveOccurred())
			}

			n, err := driver.Clear(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			list, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})

	It("handles concurrent writers", func() {
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := driver.Put(ctx, NewExchange(fmt.Sprintf("c-%d", i), time.Duration(i)*time.Second))
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		list, err := driver.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(10))
	})
}
