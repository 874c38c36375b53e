package sse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// feedInChunks writes input to a fresh decoder in pieces of at most size
// bytes and returns every event produced.
func feedInChunks(input []byte, size int) []Event {
	d := NewDecoder()
	var events []Event
	for len(input) > 0 {
		n := min(size, len(input))
		events = append(events, d.Write(input[:n])...)
		input = input[n:]
	}
	d.Close()
	return events
}

var _ = Describe("Decoder", func() {
	stream := []byte("event: session_id\ndata: {\"id\":\"abc\"}\n\n" +
		"event: message\ndata: {\"text\":\"Článek 5 — § 12 ✓\"}\n\n" +
		": keep-alive\n\n" +
		"event: message\ndata: {\"text\":\"日本語\"}\n\n" +
		"event: complete\ndata: {}\n\n")

	It("produces the same events for every chunk size", func() {
		whole := feedInChunks(stream, len(stream))
		Expect(whole).To(HaveLen(4))

		for size := 1; size < len(stream); size++ {
			Expect(feedInChunks(stream, size)).To(Equal(whole), "chunk size %d", size)
		}
	})

	It("carries a multi-byte character split across chunks", func() {
		d := NewDecoder()
		payload := []byte("data: é\n\n")
		// "é" is 0xC3 0xA9; split between the two bytes.
		split := 7
		Expect(payload[6]).To(Equal(byte(0xC3)))

		Expect(d.Write(payload[:split])).To(BeEmpty())
		Expect(d.Pending()).To(BeTrue())

		events := d.Write(payload[split:])
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("é"))
	})

	It("dispatches when a chunk ends exactly on the blank line", func() {
		d := NewDecoder()
		events := d.Write([]byte("data: one\n\n"))
		Expect(events).To(HaveLen(1))
		Expect(d.Pending()).To(BeFalse())

		events = d.Write([]byte("data: two\n"))
		Expect(events).To(BeEmpty())
		events = d.Write([]byte("\n"))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("two"))
	})

	It("replaces invalid bytes instead of failing", func() {
		d := NewDecoder()
		events := d.Write([]byte("data: a\xffb\n\n"))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("a�b"))
	})

	It("trims whitespace around the event type", func() {
		d := NewDecoder()
		events := d.Write([]byte("event:   complete  \ndata: {}\n\n"))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(Equal("complete"))
	})

	It("keeps empty data lines when joining multi-line data", func() {
		d := NewDecoder()
		events := d.Write([]byte("data:\ndata: x\n\n" +
			"event: message\ndata: a\ndata:\ndata: b\n\n"))
		Expect(events).To(HaveLen(2))
		Expect(events[0].Data).To(Equal("\nx"))
		Expect(events[1].Data).To(Equal("a\n\nb"))
	})

	Describe("Close", func() {
		It("reports and discards an unterminated event", func() {
			d := NewDecoder()
			Expect(d.Write([]byte("event: complete\ndata: {}\n"))).To(BeEmpty())
			Expect(d.Close()).To(BeTrue())
			Expect(d.Pending()).To(BeFalse())
		})

		It("reports nothing discarded after a clean stream", func() {
			d := NewDecoder()
			Expect(d.Write([]byte("data: x\n\n"))).To(HaveLen(1))
			Expect(d.Close()).To(BeFalse())
		})

		It("ignores writes after close", func() {
			d := NewDecoder()
			d.Close()
			Expect(d.Write([]byte("data: x\n\n"))).To(BeEmpty())
		})
	})
})
