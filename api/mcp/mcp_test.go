package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/counsel/api/mcp"
	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/devserver"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/history/inmemory"
	"github.com/papercomputeco/counsel/pkg/history/recorder"
	"github.com/papercomputeco/counsel/pkg/logger"
)

type fakeChat struct {
	result *chat.Result
	err    error
}

func (f *fakeChat) SendMessage(_ context.Context, _, _ string, _ ...chat.SendOption) (*chat.Result, error) {
	return f.result, f.err
}

// brokenHistory fails every List call.
type brokenHistory struct {
	*inmemory.Driver
}

func (brokenHistory) List(context.Context, int) ([]*history.Exchange, error) {
	return nil, errors.New("disk on fire")
}

func startDevServer() *chat.Client {
	server := devserver.NewServer(devserver.Config{ChunkSize: 9}, logger.Nop())

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
	return client
}

// connect opens an in-memory client session against server.
func connect(server *mcp.Server) *sdk.ClientSession {
	ctx := context.Background()
	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(ss.Close)

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(cs.Close)
	return cs
}

func callTool(cs *sdk.ClientSession, name string, args map[string]any) *sdk.CallToolResult {
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(res.Content).NotTo(BeEmpty())
	return res
}

func resultText(res *sdk.CallToolResult) string {
	text, ok := res.Content[0].(*sdk.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

func toolNames(cs *sdk.ClientSession) []string {
	res, err := cs.ListTools(context.Background(), nil)
	Expect(err).NotTo(HaveOccurred())
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names
}

var _ = Describe("MCP Server", func() {
	Describe("NewServer", func() {
		It("returns an error when the chat client is nil", func() {
			_, err := mcp.NewServer(mcp.Config{})
			Expect(err).To(MatchError(ContainSubstring("chat client is required")))
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{Chat: &fakeChat{}})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("only offers history_search with a history driver", func() {
			server, err := mcp.NewServer(mcp.Config{Chat: &fakeChat{}})
			Expect(err).NotTo(HaveOccurred())
			Expect(toolNames(connect(server))).To(ConsistOf("ask_counsel"))

			server, err = mcp.NewServer(mcp.Config{Chat: &fakeChat{}, History: inmemory.NewDriver()})
			Expect(err).NotTo(HaveOccurred())
			Expect(toolNames(connect(server))).To(ConsistOf("ask_counsel", "history_search"))
		})
	})

	Describe("ask_counsel", func() {
		It("returns the streamed answer and records it", func() {
			store := inmemory.NewDriver()
			rec, err := recorder.New(&recorder.Config{Driver: store})
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(rec.Close)

			server, err := mcp.NewServer(mcp.Config{
				Chat:     startDevServer(),
				Language: "cs",
				Recorder: rec,
				Logger:   logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			res := callTool(connect(server), "ask_counsel", map[string]any{"question": "Mohu dát výpověď?"})
			Expect(res.IsError).To(BeFalse())

			var out mcp.AskOutput
			Expect(json.Unmarshal([]byte(resultText(res)), &out)).To(Succeed())
			Expect(out.SessionID).NotTo(BeEmpty())
			Expect(out.Answer).To(ContainSubstring("záleží na okolnostech"))
			Expect(out.Sources).To(ContainElement(chat.Source{Source: "Zákoník práce", ArticleNumber: "52"}))
			Expect(out.SuggestedQuestions).To(HaveLen(2))

			rec.Close()
			exchanges, err := store.List(context.Background(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(exchanges).To(HaveLen(1))
			Expect(exchanges[0].Language).To(Equal("cs"))
			Expect(exchanges[0].SessionID).To(Equal(out.SessionID))
		})

		It("rejects an empty question", func() {
			server, err := mcp.NewServer(mcp.Config{Chat: &fakeChat{}})
			Expect(err).NotTo(HaveOccurred())

			res := callTool(connect(server), "ask_counsel", map[string]any{"question": "  "})
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(Equal("question is required"))
		})

		It("reports backend failures as tool errors", func() {
			server, err := mcp.NewServer(mcp.Config{
				Chat: &fakeChat{err: &chat.StatusError{StatusCode: http.StatusUnauthorized, Body: "bad token"}},
			})
			Expect(err).NotTo(HaveOccurred())

			res := callTool(connect(server), "ask_counsel", map[string]any{"question": "hello"})
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("status 401"))
		})

		It("includes partial text when the answer was cut off", func() {
			server, err := mcp.NewServer(mcp.Config{
				Chat: &fakeChat{err: &chat.PartialError{Cause: errors.New("boom"), Text: "It depends"}},
			})
			Expect(err).NotTo(HaveOccurred())

			res := callTool(connect(server), "ask_counsel", map[string]any{"question": "hello"})
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("cut off"))
			Expect(resultText(res)).To(HaveSuffix("It depends"))
		})
	})

	Describe("history_search", func() {
		var cs *sdk.ClientSession

		BeforeEach(func() {
			store := inmemory.NewDriver()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i, q := range []string{"Notice period for employees", "Lease deposit", "Employee overtime"} {
				_, err := store.Put(context.Background(), &history.Exchange{
					ID:        q,
					Question:  q,
					Answer:    "Answer about " + strings.ToLower(q),
					Language:  "en",
					CreatedAt: base.Add(time.Duration(i) * time.Hour),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			server, err := mcp.NewServer(mcp.Config{Chat: &fakeChat{}, History: store})
			Expect(err).NotTo(HaveOccurred())
			cs = connect(server)
		})

		search := func(args map[string]any) mcp.HistorySearchOutput {
			res := callTool(cs, "history_search", args)
			Expect(res.IsError).To(BeFalse())

			var out mcp.HistorySearchOutput
			Expect(json.Unmarshal([]byte(resultText(res)), &out)).To(Succeed())
			return out
		}

		It("matches questions and answers case-insensitively, newest first", func() {
			out := search(map[string]any{"query": "EMPLOYEE"})
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].Question).To(Equal("Employee overtime"))
			Expect(out.Results[1].Question).To(Equal("Notice period for employees"))
			Expect(out.Results[1].Sources).To(BeEmpty())
			Expect(out.Results[0].CreatedAt).To(Equal("2026-03-01T14:00:00Z"))
		})

		It("returns the most recent exchanges for an empty query", func() {
			out := search(map[string]any{"limit": 2})
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].ID).To(Equal("Employee overtime"))
			Expect(out.Results[1].ID).To(Equal("Lease deposit"))
		})

		It("returns no results when nothing matches", func() {
			out := search(map[string]any{"query": "inheritance"})
			Expect(out.Count).To(BeZero())
			Expect(out.Results).To(BeEmpty())
		})

		It("reports a failing store as a tool error", func() {
			server, err := mcp.NewServer(mcp.Config{
				Chat:    &fakeChat{},
				History: brokenHistory{inmemory.NewDriver()},
			})
			Expect(err).NotTo(HaveOccurred())

			res := callTool(connect(server), "history_search", map[string]any{"query": "lease"})
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("disk on fire"))
		})
	})

	Describe("Handler", func() {
		It("serves the tools over streamable HTTP", func() {
			server, err := mcp.NewServer(mcp.Config{
				Chat: &fakeChat{result: &chat.Result{
					SessionID: "s-1",
					Messages:  []chat.Message{{Content: "It depends.", Sender: chat.SenderAssistant}},
				}},
			})
			Expect(err).NotTo(HaveOccurred())

			httpServer := httptest.NewServer(server.Handler())
			DeferCleanup(httpServer.Close)

			client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
			cs, err := client.Connect(context.Background(), &sdk.StreamableClientTransport{Endpoint: httpServer.URL}, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(cs.Close)

			res := callTool(cs, "ask_counsel", map[string]any{"question": "hello"})
			Expect(res.IsError).To(BeFalse())
			Expect(resultText(res)).To(ContainSubstring(`"answer":"It depends."`))
		})
	})
})
