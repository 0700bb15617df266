package agent

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/validator"
)

type fakeLLM struct {
	output  string
	err     error
	lastReq *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.lastReq = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(f.output, genai.RoleModel)}, nil)
	}
}

func TestExtractor_SendsJSONModeRequest(t *testing.T) {
	llm := &fakeLLM{output: `{"intent":"greeting","confidence":0.9}`}
	raw, err := NewExtractor(llm).Extract(context.Background(), "system", "hello")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if raw != `{"intent":"greeting","confidence":0.9}` {
		t.Fatalf("unexpected output %q", raw)
	}
	cfg := llm.lastReq.Config
	if cfg.ResponseMIMEType != "application/json" || cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("expected deterministic json request, got %+v", cfg)
	}
	if cfg.SystemInstruction.Parts[0].Text != "system" || llm.lastReq.Contents[0].Parts[0].Text != "hello" {
		t.Fatalf("unexpected prompt layout %+v", llm.lastReq)
	}
}

func TestExtractor_PropagatesModelError(t *testing.T) {
	_, err := NewExtractor(&fakeLLM{err: errors.New("502")}).Extract(context.Background(), "s", "u")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestReplier_FiltersUnknownButtonsAndCards(t *testing.T) {
	llm := &fakeLLM{output: "```json\n" + `{"text":"Pick one","buttons":[{"id":"talk_to_agent","title":"Agent"},{"id":"hack","title":"x"}],"vehicleCards":[{"vehicleId":"v1"},{"vehicleId":"v9"}]}` + "\n```"}
	reply, err := NewReplier(llm, validator.New()).GenerateReply(context.Background(), ports.ReplyContext{
		Stage:   domain.StagePresentingOptions,
		Options: []domain.VehicleSearchOption{{VehicleID: "v1"}, {VehicleID: "v2"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply.Text != "Pick one" || len(reply.Buttons) != 1 || reply.Buttons[0].ID != ButtonAgent {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(reply.VehicleCards) != 1 || reply.VehicleCards[0].VehicleID != "v1" {
		t.Fatalf("expected only offered vehicle card, got %+v", reply.VehicleCards)
	}
}

func TestReplier_AddsCardsWhenModelOmitsThem(t *testing.T) {
	llm := &fakeLLM{output: `{"text":"Here you go"}`}
	reply, err := NewReplier(llm, validator.New()).GenerateReply(context.Background(), ports.ReplyContext{
		Stage:   domain.StagePresentingOptions,
		Options: []domain.VehicleSearchOption{{VehicleID: "v1"}, {VehicleID: "v2"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(reply.VehicleCards) != 2 {
		t.Fatalf("expected a card per option, got %+v", reply.VehicleCards)
	}
}

func TestReplier_RejectsInvalidOutput(t *testing.T) {
	for _, output := range []string{"not json", `{"text":""}`} {
		_, err := NewReplier(&fakeLLM{output: output}, validator.New()).GenerateReply(context.Background(), ports.ReplyContext{})
		if err == nil {
			t.Fatalf("expected error for %q", output)
		}
	}
}

func TestComposer(t *testing.T) {
	c := NewComposer()
	selected := domain.VehicleSearchOption{VehicleID: "v1", Make: "Toyota", Model: "Prado", EstimatedTotalInclVAT: 161250}

	cases := []struct {
		name     string
		rc       ports.ReplyContext
		contains string
		buttons  int
		cards    int
	}{
		{"greeting", ports.ReplyContext{Stage: domain.StageGreeting}, "Hello", 3, 0},
		{"missing field", ports.ReplyContext{Stage: domain.StageCollecting, Missing: []string{"pickupTime"}}, "What time", 0, 0},
		{"precondition prompt", ports.ReplyContext{Stage: domain.StageCollecting, Prompt: "What date should the booking end?"}, "should the booking end", 0, 0},
		{"booking type", ports.ReplyContext{Stage: domain.StageCollecting, Missing: []string{"bookingType"}}, "kind of booking", 3, 0},
		{"options", ports.ReplyContext{Stage: domain.StagePresentingOptions, Options: []domain.VehicleSearchOption{selected}, ExactMatchFound: true}, "match your request", 0, 1},
		{"alternatives", ports.ReplyContext{Stage: domain.StagePresentingOptions, Options: []domain.VehicleSearchOption{selected}}, "exact match", 0, 1},
		{"no options", ports.ReplyContext{Stage: domain.StagePresentingOptions}, "no vehicles", 1, 0},
		{"confirming", ports.ReplyContext{Stage: domain.StageConfirming, Selected: &selected, CurrencySymbol: "₦"}, "₦161,250", 3, 0},
		{"payment", ports.ReplyContext{Stage: domain.StageAwaitingPayment, CheckoutURL: "https://pay/x"}, "https://pay/x", 0, 0},
		{"handoff", ports.ReplyContext{Stage: domain.StageCollecting, Node: domain.NodeHandoff}, "agents", 0, 0},
		{"cancelled", ports.ReplyContext{Stage: domain.StageCancelled}, "cancelled", 1, 0},
		{"pending error", ports.ReplyContext{Stage: domain.StageCollecting, PendingErrorText: "That vehicle was just taken.", Missing: []string{"from"}}, "just taken.\n\nWhat date", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply := c.Compose(tc.rc)
			if !strings.Contains(reply.Text, tc.contains) {
				t.Fatalf("expected %q in %q", tc.contains, reply.Text)
			}
			if len(reply.Buttons) != tc.buttons || len(reply.VehicleCards) != tc.cards {
				t.Fatalf("unexpected controls %+v", reply)
			}
		})
	}
}
