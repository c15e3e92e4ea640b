package data

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/postworthy/postbot/internal/biz/domain"
	"github.com/postworthy/postbot/internal/biz/repo"
)

// chatRepo implements repo.ChatRepo over the Slack Web API
type chatRepo struct {
	client *slack.Client
}

// NewChatRepo creates a Slack-backed chat repository
func NewChatRepo(client *slack.Client) repo.ChatRepo {
	return &chatRepo{client: client}
}

// FetchHistory fetches one page of conversations.history.
func (r *chatRepo) FetchHistory(ctx context.Context, channelID, oldest, latest, cursor string, limit int) (*repo.HistoryPage, error) {
	resp, err := r.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    oldest,
		Latest:    latest,
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return nil, translateError(err)
	}

	page := &repo.HistoryPage{
		HasMore:    resp.HasMore,
		NextCursor: resp.ResponseMetaData.NextCursor,
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, repo.RawMessage{
			User:    m.User,
			Text:    m.Text,
			TS:      m.Timestamp,
			BotID:   m.BotID,
			SubType: m.SubType,
		})
	}
	return page, nil
}

// SendText sends a plain text message
func (r *chatRepo) SendText(ctx context.Context, channelID, text string) error {
	_, _, err := r.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post message to %s: %w", channelID, translateError(err))
	}
	return nil
}

// PostSuggestion posts an accepted suggestion as Block Kit blocks
func (r *chatRepo) PostSuggestion(ctx context.Context, channelID string, s *domain.Suggestion) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Post-worthy moment spotted", false, false)),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, s.Reasoning, false, false)),
	}
	if s.LinkedInDraft != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "*LinkedIn draft*\n"+s.LinkedInDraft, false, false), nil, nil),
		)
	}
	if s.XDraft != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "*X draft*\n"+s.XDraft, false, false), nil, nil),
		)
	}

	_, _, err := r.client.PostMessageContext(ctx, channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText("Post-worthy moment spotted: "+s.Reasoning, false),
	)
	if err != nil {
		return fmt.Errorf("post suggestion to %s: %w", channelID, translateError(err))
	}
	return nil
}

// translateError maps Slack error codes to the named repo errors.
// The Web API reports failures as bare code strings.
func translateError(err error) error {
	switch err.Error() {
	case "channel_not_found":
		return repo.ErrChannelNotFound
	case "not_in_channel":
		return repo.ErrNotInChannel
	default:
		return err
	}
}
