package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/postworthy/postbot/internal/biz/usecase"
	"github.com/postworthy/postbot/internal/service"
)

// SlackServer connects to Slack over Socket Mode, feeds live messages
// into the buffer, and handles the /postbot command. All decisions live
// in the usecase/service layers; this is transport only.
type SlackServer struct {
	client   *slack.Client
	socket   *socketmode.Client
	buffer   *usecase.BufferUsecase
	analyzer *service.AnalyzerService
}

// NewSlackServer creates a new Slack server
func NewSlackServer(client *slack.Client, socket *socketmode.Client, buffer *usecase.BufferUsecase, analyzer *service.AnalyzerService) *SlackServer {
	return &SlackServer{
		client:   client,
		socket:   socket,
		buffer:   buffer,
		analyzer: analyzer,
	}
}

// Run starts the Socket Mode connection and processes events until the
// context is cancelled.
func (s *SlackServer) Run(ctx context.Context) error {
	go s.eventLoop(ctx)

	fmt.Println("[Slack] Starting Socket Mode connection...")
	return s.socket.RunContext(ctx)
}

func (s *SlackServer) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.socket.Events:
			if !ok {
				return
			}
			s.handleSocketEvent(ctx, evt)
		}
	}
}

func (s *SlackServer) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		fmt.Println("[Slack] Connected")

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			s.socket.Ack(*evt.Request)
		}
		s.handleEventsAPI(apiEvent)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		if evt.Request != nil {
			s.socket.Ack(*evt.Request)
		}
		// Commands can block on external calls; keep the event loop free.
		go s.handleCommand(ctx, cmd)
	}
}

// handleEventsAPI feeds qualifying live messages into the buffer.
func (s *SlackServer) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if !s.buffer.ShouldStore(ev.BotID, ev.SubType, ev.Text) {
			return
		}
		s.buffer.Add(ev.Channel, ev.User, ev.Text, ev.TimeStamp)
	}
}

// handleCommand dispatches /postbot subcommands.
func (s *SlackServer) handleCommand(ctx context.Context, cmd slack.SlashCommand) {
	fields := strings.Fields(cmd.Text)
	sub := ""
	if len(fields) > 0 {
		sub = strings.ToLower(fields[0])
	}

	var reply string
	switch sub {
	case "", "analyze":
		payload := s.analyzer.RunBufferAnalysis(ctx, cmd.ChannelID)
		reply = service.FormatPayload(payload)

	case "history":
		if len(fields) < 2 {
			reply = "Usage: /postbot history <window>, e.g. /postbot history 2h"
			break
		}
		payload := s.analyzer.RunHistoryAnalysis(ctx, cmd.ChannelID, fields[1])
		reply = service.FormatPayload(payload)

	case "sync":
		payload := s.analyzer.RunSync(ctx, cmd.ChannelID)
		reply = service.FormatPayload(payload)

	case "status":
		reply = s.formatStatus()

	default:
		reply = "I know: analyze, history <2h|3d>, sync, status"
	}

	s.reply(ctx, cmd.ChannelID, reply)
}

func (s *SlackServer) formatStatus() string {
	stats := s.buffer.Stats()
	if len(stats) == 0 {
		return "Buffer is empty, no channels with recent messages."
	}

	var sb strings.Builder
	sb.WriteString("Buffered messages per channel:\n")
	for channelID, count := range stats {
		sb.WriteString(fmt.Sprintf("• <#%s>: %d\n", channelID, count))
	}
	return sb.String()
}

func (s *SlackServer) reply(ctx context.Context, channelID, text string) {
	_, _, err := s.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		fmt.Printf("[Slack] Failed to reply in %s: %v\n", channelID, err)
	}
}
