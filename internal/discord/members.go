// Package discord looks up guild membership for registered members. Member
// keys in the registry are Discord user ids.
package discord

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/models"
	"github.com/allinsc2/ladder-sync/internal/upstream"
)

const defaultRetryAfter = time.Second

// guildMemberAPI is the slice of *discordgo.Session used here.
type guildMemberAPI interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

type Directory struct {
	api              guildMemberAPI
	guildID          string
	fullMemberRoleID string
	retries          int
	sleep            func(ctx context.Context, d time.Duration) error
	logger           *zap.SugaredLogger
}

// NewDirectory opens a bot session. Rate limits are surfaced to the caller
// instead of being retried inside discordgo.
func NewDirectory(token, guildID, fullMemberRoleID string, retries int, logger *zap.Logger) (*Directory, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.ShouldRetryOnRateLimit = false
	return newDirectory(session, guildID, fullMemberRoleID, retries, logger), nil
}

func newDirectory(api guildMemberAPI, guildID, fullMemberRoleID string, retries int, logger *zap.Logger) *Directory {
	if retries <= 0 {
		retries = 5
	}
	return &Directory{
		api:              api,
		guildID:          guildID,
		fullMemberRoleID: fullMemberRoleID,
		retries:          retries,
		sleep:            upstream.Sleep,
		logger:           logger.Sugar(),
	}
}

// MemberInfo fetches a member's roles and names. A 429 is retried after the
// server's retry_after, up to the retry budget. Any other failure, or an
// exhausted budget, yields Found=false.
func (d *Directory) MemberInfo(ctx context.Context, memberKey string) models.DiscordInfo {
	for attempt := 0; attempt <= d.retries; attempt++ {
		member, err := d.api.GuildMember(d.guildID, memberKey, discordgo.WithContext(ctx))
		if err == nil {
			return d.toInfo(member)
		}

		var rl *discordgo.RateLimitError
		if !errors.As(err, &rl) {
			d.logger.Warnw("Discord member lookup failed", "member", memberKey, "error", err)
			return models.DiscordInfo{}
		}

		wait := defaultRetryAfter
		if rl.RateLimit != nil && rl.TooManyRequests != nil && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		d.logger.Infow("Discord rate limited", "member", memberKey, "attempt", attempt+1, "retryAfter", wait)
		if err := d.sleep(ctx, wait); err != nil {
			return models.DiscordInfo{}
		}
	}

	d.logger.Warnw("Discord retries exhausted", "member", memberKey, "retries", d.retries)
	return models.DiscordInfo{}
}

func (d *Directory) toInfo(m *discordgo.Member) models.DiscordInfo {
	info := models.DiscordInfo{Found: true, ServerNick: m.Nick}
	if m.User != nil {
		info.Username = m.User.Username
	}
	for _, role := range m.Roles {
		if role == d.fullMemberRoleID {
			info.IsFullMember = true
			break
		}
	}
	return info
}
