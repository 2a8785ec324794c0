package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/asterion-health/asterion-go/internal/api"
	"github.com/asterion-health/asterion-go/internal/config"
	"github.com/asterion-health/asterion-go/internal/observability"
	"github.com/asterion-health/asterion-go/internal/realtime"
	"github.com/asterion-health/asterion-go/internal/session"
	"github.com/asterion-health/asterion-go/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if !session.Authenticated(cfg.AccessToken, time.Now()) {
		log.Fatalf("access token is expired or malformed")
	}

	user, ok := session.UserFromToken(cfg.AccessToken)
	if !ok {
		log.Fatalf("access token carries no usable identity")
	}

	sessions := session.NewStore(cfg.SessionFile, logger)
	sessions.SaveUser(user)

	client := api.New(cfg.APIBaseURL, cfg.AccessToken, cfg.HTTPTimeout, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	messages := store.NewMessageStore(client, logger)
	chats := store.NewChatStore(client, messages, user.ID, sessions, validate, logger)
	search := store.NewSearchStore(client, cfg.SearchDebounce, logger)
	documents := store.NewDocumentStore(client, logger)

	dispatcher := realtime.NewDispatcher(messages, chats, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := observability.ServeMetrics(cfg.MetricsAddr); err != nil {
				logger.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	if err := chats.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial conversation fetch failed")
	}
	if err := chats.RefreshInvitations(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial invitation fetch failed")
	}

	restoreSelectedChat(ctx, sessions, chats, logger)

	switch {
	case cfg.NATSURL != "":
		transport, err := realtime.NewNATSTransport(cfg.NATSURL, cfg.NATSSubject, dispatcher, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		go transport.Run(ctx)
	case cfg.WebsocketURL != "":
		transport := realtime.NewWebsocketTransport(cfg.WebsocketURL, cfg.AccessToken, dispatcher, logger)
		go transport.Run(ctx)
	default:
		logger.Warn().Msg("no realtime transport configured, running request-only")
	}

	app := &app{
		chats:     chats,
		messages:  messages,
		search:    search,
		documents: documents,
		logger:    logger,
	}

	go app.repl(ctx, stop)

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

// restoreSelectedChat reopens the conversation persisted by a previous
// session, best-effort.
func restoreSelectedChat(ctx context.Context, sessions *session.Store, chats *store.ChatStore, logger zerolog.Logger) {
	state := sessions.Load()
	if state.SelectedChatID == 0 {
		return
	}

	for _, chat := range chats.Chats() {
		if chat.ID == state.SelectedChatID {
			if err := chats.Open(ctx, chat); err != nil {
				logger.Debug().Err(err).Int64("chat_id", chat.ID).Msg("failed to restore selected conversation")
			}
			return
		}
	}
}

type app struct {
	chats     *store.ChatStore
	messages  *store.MessageStore
	search    *store.SearchStore
	documents *store.DocumentStore
	logger    zerolog.Logger
}

// repl drives the stores from stdin commands until EOF or /quit.
func (a *app) repl(ctx context.Context, stop func()) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: /chats /open <id> /send <text> /search <q> /docs <path> /next /invites /accept <id> /decline <id> /quit")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		command, rest, _ := strings.Cut(line, " ")

		switch command {
		case "/quit":
			stop()
			return
		case "/chats":
			for _, chat := range a.chats.Chats() {
				fmt.Printf("[%d] %s (%s) unread=%d\n", chat.ID, chat.Title, chat.Type, chat.UnreadCount)
			}
		case "/open":
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				fmt.Println("usage: /open <chat id>")
				continue
			}
			a.openChat(ctx, id)
		case "/send":
			current, ok := a.chats.Current()
			if !ok {
				fmt.Println("open a conversation first")
				continue
			}
			if _, err := a.messages.Send(ctx, current.ID, rest); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		case "/search":
			a.search.Search(ctx, rest, true)
		case "/docs":
			if rest == "" {
				rest = store.RootPath
			}
			if err := a.documents.Fetch(ctx, store.ListOptions{Path: rest}); err != nil {
				fmt.Printf("listing failed: %v\n", err)
				continue
			}
			a.printListing()
		case "/next":
			if err := a.documents.NextPage(ctx); err != nil {
				fmt.Printf("pagination failed: %v\n", err)
				continue
			}
			a.printListing()
		case "/invites":
			for _, invitation := range a.chats.Incoming() {
				fmt.Printf("incoming [%d] %s from %s\n", invitation.ID, invitation.ChatTitle, invitation.CreatedBy)
			}
			for _, invitation := range a.chats.Sent() {
				fmt.Printf("sent [%d] %s to %s\n", invitation.ID, invitation.ChatTitle, invitation.InvitedUser)
			}
		case "/accept":
			a.resolveInvitation(ctx, rest, a.chats.Accept)
		case "/decline":
			a.resolveInvitation(ctx, rest, a.chats.Decline)
		default:
			if line != "" {
				fmt.Println("unknown command")
			}
		}
	}
	stop()
}

func (a *app) openChat(ctx context.Context, id int64) {
	for _, chat := range a.chats.Chats() {
		if chat.ID == id {
			if err := a.chats.Open(ctx, chat); err != nil {
				fmt.Printf("open failed: %v\n", err)
				return
			}
			for _, message := range a.messages.Messages() {
				fmt.Printf("%s %s: %s\n", message.CreatedAt.Format(time.Kitchen), message.AuthorID, message.Content)
			}
			return
		}
	}
	fmt.Println("unknown conversation")
}

func (a *app) printListing() {
	for _, crumb := range a.documents.Breadcrumbs() {
		fmt.Printf("%s > ", crumb.Name)
	}
	fmt.Println()
	for _, item := range a.documents.Items() {
		fmt.Printf("  %-6s %s\n", item.Type, item.Name)
	}
	if a.documents.HasNext() {
		fmt.Println("  (/next for more)")
	}
}

func (a *app) resolveInvitation(ctx context.Context, rest string, action func(context.Context, int64) error) {
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		fmt.Println("usage: /accept|/decline <invitation id>")
		return
	}
	if err := action(ctx, id); err != nil {
		fmt.Printf("invitation action failed: %v\n", err)
	}
}
