package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/appstate"
	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/chat"
	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/notify"
	"github.com/matheus3301/campus/internal/rpc"
	"github.com/matheus3301/campus/internal/status"
	"github.com/matheus3301/campus/internal/tui/keys"
	"github.com/matheus3301/campus/internal/tui/ui"
	"github.com/matheus3301/campus/internal/tui/views"
)

// Backend is what the terminal client reads directly, outside the sync cores.
type Backend interface {
	Status(ctx context.Context) (*rpc.StatusResponse, error)
	ListNotifications(ctx context.Context, receiverID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	SearchProfiles(ctx context.Context, query string, roles []domain.Role, limit int) ([]domain.Profile, error)
}

const (
	notificationLimit = 200
	searchLimit       = 50
	resyncDelay       = 300 * time.Millisecond
	daemonPoll        = 5 * time.Second
	callTimeout       = 5 * time.Second
)

// App is the terminal client shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	registry *keys.Registry
	pages    *ui.Pages
	root     *tview.Flex
	header   *ui.Header
	menu     *ui.Menu
	flash    *ui.FlashBar
	prompt   *ui.Prompt

	chats  *views.ConversationList
	conv   *views.ConversationView
	notes  *views.NotificationList
	search *views.SearchView
	help   *views.HelpView

	backend Backend
	state   *appstate.State
	notify  *notify.Sync
	chat    *chat.Sync
	events  *bus.Bus
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	daemon string

	// Owned by the watch goroutine.
	stale  bool
	resync *time.Timer
}

// NewApp creates the terminal client for the identity in state.
func NewApp(backend Backend, state *appstate.State, ns *notify.Sync, cs *chat.Sync, events *bus.Bus, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		header:   ui.NewHeader(theme),
		menu:     ui.NewMenu(theme),
		flash:    ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		chats:    views.NewConversationList(theme, state.Identity),
		conv:     views.NewConversationView(theme, state.Identity),
		notes:    views.NewNotificationList(theme),
		search:   views.NewSearchView(theme),
		help:     views.NewHelpView(theme),
		backend:  backend,
		state:    state,
		notify:   ns,
		chat:     cs,
		events:   events,
		logger:   logger.Named("tui"),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal("chats", &keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Description: "c:chats", Visible: true,
		Handler: a.showChats,
	})
	a.registry.AddGlobal("notifications", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Description: "n:notifications", Visible: true,
		Handler: a.showNotifications,
	})
	a.registry.AddGlobal("search", &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Description: "/:find people", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptSearch) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "::command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: a.showHelp,
	})
	a.registry.AddGlobal("back", &keys.Action{
		Key:     tcell.KeyEscape,
		Handler: a.back,
	})

	chats := string(appstate.ViewChats)
	a.registry.AddView(chats, "filter", &keys.Action{
		Key: tcell.KeyRune, Rune: 'f',
		Description: "f:filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddView(chats, "delete", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Description: "d:delete", Visible: true,
		Handler: a.deleteConversation,
	})

	conv := string(appstate.ViewConversation)
	a.registry.AddView(conv, "compose", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.conv.Composer()) },
	})
	a.registry.AddView(conv, "delete", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Description: "d:delete", Visible: true,
		Handler: a.deleteConversation,
	})
}

func (a *App) setupCallbacks() {
	a.chats.SetSelectedFunc(func(row, col int) {
		if id := a.chats.SelectedID(); id != "" {
			a.openConversation(id)
		}
	})
	a.search.SetSelectedFunc(func(row, col int) {
		if id, ok := a.search.Selected(); ok {
			a.startOrResume(id)
		}
	})
	a.conv.BindInput(a.chat.SetInput, a.send)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptSearch:
			if strings.TrimSpace(text) != "" {
				a.findPeople(strings.TrimSpace(text))
			}
		case ui.PromptFilter:
			a.chats.SetFilter(strings.TrimSpace(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
	a.pages.SetOnChange(func([]appstate.View) {
		a.state.SetView(a.pages.Current())
	})
}

func (a *App) setupLayout() {
	a.pages.Add(appstate.ViewChats, a.chats)
	a.pages.Add(appstate.ViewConversation, a.conv)
	a.pages.Add(appstate.ViewNotifications, a.notes)
	a.pages.Add(appstate.ViewSearch, a.search)
	a.pages.Add(appstate.ViewHelp, a.help)
	a.pages.Reset(appstate.ViewChats)

	top := tview.NewFlex().
		AddItem(a.header, 0, 2, false).
		AddItem(a.menu, 0, 1, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 4, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flash, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetFocus(a.chats)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() == tcell.KeyCtrlC {
		a.Stop()
		return nil
	}
	focused := a.app.GetFocus()
	if focused == a.conv.Composer() && ev.Key() == tcell.KeyEscape {
		a.app.SetFocus(a.conv.Timeline())
		return nil
	}
	// Text inputs get every other key.
	if _, ok := focused.(*tview.InputField); ok || focused == a.prompt {
		return ev
	}
	if a.registry.HandleEvent(string(a.pages.Current()), ev) {
		return nil
	}
	return ev
}

// Run shows the client until the user quits.
func (a *App) Run() error {
	go a.start()
	go a.watch()
	defer a.cancel()
	return a.app.Run()
}

// Stop quits the client.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) start() {
	me := a.state.Identity
	if err := a.notify.Initialize(a.ctx, me.ID); err != nil {
		a.state.Fail(fmt.Errorf("notifications: %w", err))
	}
	if err := a.chat.Start(a.ctx); err != nil {
		a.state.Fail(fmt.Errorf("conversations: %w", err))
	}
	a.pollDaemon()
	a.app.QueueUpdateDraw(a.refresh)
}

// watch redraws on every state change and follows the feed link.
func (a *App) watch() {
	links, unsubscribe := a.events.Subscribe(bus.NamespaceLink, 32)
	defer unsubscribe()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	poll := time.NewTicker(daemonPoll)
	defer poll.Stop()

	for {
		select {
		case <-a.ctx.Done():
			if a.resync != nil {
				a.resync.Stop()
			}
			return
		case <-a.notify.Changes():
		case <-a.chat.Changes():
		case <-a.state.Changes():
		case evt, ok := <-links:
			if !ok {
				links = nil
				continue
			}
			a.onLink(evt)
		case <-tick.C:
		case <-poll.C:
			a.pollDaemon()
		}
		a.app.QueueUpdateDraw(a.refresh)
	}
}

func (a *App) onLink(evt bus.Event) {
	change, ok := evt.Payload.(status.StatusChange)
	if !ok {
		return
	}
	a.state.SetLink(change.To)
	switch change.To {
	case status.Reconnecting:
		if !a.stale {
			a.state.Flash.Warn("Lost the live feed, reconnecting...")
		}
		a.stale = true
	case status.Live:
		if !a.stale {
			return
		}
		a.stale = false
		// Several subscriptions come back one after the other.
		if a.resync == nil {
			a.resync = time.AfterFunc(resyncDelay, a.doResync)
		} else {
			a.resync.Reset(resyncDelay)
		}
	}
}

func (a *App) doResync() {
	ctx, cancel := context.WithTimeout(a.ctx, 2*callTimeout)
	defer cancel()
	if err := a.notify.Refresh(ctx); err != nil {
		a.state.Fail(fmt.Errorf("resync notifications: %w", err))
		return
	}
	if err := a.chat.Resync(ctx); err != nil {
		a.state.Fail(fmt.Errorf("resync conversations: %w", err))
		return
	}
	a.logger.Info("resynced after reconnect")
	a.state.Flash.Info("Reconnected")
	a.app.QueueUpdateDraw(a.refresh)
}

func (a *App) pollDaemon() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	text := "UNREACHABLE"
	if resp, err := a.backend.Status(ctx); err == nil {
		text = resp.Status
	}
	a.mu.Lock()
	a.daemon = text
	a.mu.Unlock()
}

func (a *App) daemonStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.daemon
}

// refresh redraws everything from the sync cores. Runs on the UI goroutine.
func (a *App) refresh() {
	if a.pages.Current() == appstate.ViewConversation && a.chat.OpenID() == "" {
		a.state.Flash.Warn("The conversation was deleted")
		a.pages.Reset(appstate.ViewChats)
		a.focusCurrent()
	}

	a.chats.Update(a.chat.Conversations())
	if a.pages.Current() == appstate.ViewConversation {
		a.conv.Update(a.chat.Timeline(), a.chat.Sending())
		a.conv.SyncInput(a.chat.Input())
	}
	a.header.Update(ui.HeaderData{
		Institute: a.state.Institute,
		Identity:  a.state.Identity.String(),
		Daemon:    a.daemonStatus(),
		Link:      a.state.Link(),
		Unread:    a.notify.Count(),
		Stack:     a.pages.Stack(),
	})
	a.menu.Update(a.hints())
	a.flash.Update(a.state.Flash.Current())
}

func (a *App) hints() []ui.MenuHint {
	var comp ui.Component
	switch a.pages.Current() {
	case appstate.ViewConversation:
		comp = a.conv
	case appstate.ViewNotifications:
		comp = a.notes
	case appstate.ViewSearch:
		comp = a.search
	case appstate.ViewHelp:
		comp = a.help
	default:
		comp = a.chats
	}
	hints := comp.Hints()
	for _, h := range a.registry.Hints("") {
		key, desc, _ := strings.Cut(h, ":")
		if key == "" {
			// The ":" binding itself.
			key, desc = ":", strings.TrimPrefix(desc, ":")
		}
		hints = append(hints, ui.MenuHint{Key: key, Description: desc, Global: true})
	}
	return hints
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case appstate.ViewConversation:
		a.app.SetFocus(a.conv.Timeline())
	case appstate.ViewNotifications:
		a.app.SetFocus(a.notes)
	case appstate.ViewSearch:
		a.app.SetFocus(a.search)
	case appstate.ViewHelp:
		a.app.SetFocus(a.help)
	default:
		a.app.SetFocus(a.chats)
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.chats.Filter())
	}
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusCurrent()
}

// leaveConversation closes the open conversation, releasing its read lease.
func (a *App) leaveConversation() {
	if a.chat.OpenID() != "" {
		a.chat.CloseConversation()
	}
}

func (a *App) showChats() {
	a.leaveConversation()
	a.pages.Reset(appstate.ViewChats)
	a.focusCurrent()
	a.refresh()
}

func (a *App) showHelp() {
	a.pages.Push(appstate.ViewHelp)
	a.focusCurrent()
	a.refresh()
}

func (a *App) back() {
	switch a.pages.Current() {
	case appstate.ViewChats:
		if a.chats.Filter() != "" {
			a.chats.SetFilter("")
		}
		return
	case appstate.ViewConversation:
		a.leaveConversation()
	}
	a.pages.Pop()
	a.focusCurrent()
	a.refresh()
}

// showNotifications lists the notifications as they were, then marks them
// all read.
func (a *App) showNotifications() {
	a.leaveConversation()
	a.pages.Reset(appstate.ViewChats)
	a.pages.Push(appstate.ViewNotifications)
	a.focusCurrent()
	a.refresh()

	me := a.state.Identity.ID
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		list, err := a.backend.ListNotifications(ctx, me, false, notificationLimit)
		if err != nil {
			a.state.Fail(fmt.Errorf("load notifications: %w", err))
			return
		}
		a.app.QueueUpdateDraw(func() { a.notes.Update(list) })
		if err := a.notify.MarkAllRead(ctx); err != nil {
			a.state.Fail(fmt.Errorf("mark notifications read: %w", err))
		}
	}()
}

func (a *App) openConversation(id string) {
	go func() {
		if err := a.chat.Open(a.ctx, id); err != nil {
			a.state.Fail(fmt.Errorf("open conversation: %w", err))
			return
		}
		a.app.QueueUpdateDraw(func() {
			for _, c := range a.chat.Conversations() {
				if c.ID == id {
					a.conv.SetConversation(c)
					break
				}
			}
			a.pages.Reset(appstate.ViewChats)
			a.pages.Push(appstate.ViewConversation)
			a.focusCurrent()
			a.refresh()
		})
	}()
}

func (a *App) startOrResume(id domain.Identity) {
	go func() {
		c, err := a.chat.StartOrResume(a.ctx, id)
		if err != nil {
			a.state.Fail(fmt.Errorf("chat with %s: %w", id, err))
			return
		}
		a.openConversation(c.ID)
	}()
}

func (a *App) findPeople(query string) {
	me := a.state.Identity
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		found, err := a.backend.SearchProfiles(ctx, query, nil, searchLimit)
		if err != nil {
			a.state.Fail(fmt.Errorf("search: %w", err))
			return
		}
		people := found[:0]
		for _, p := range found {
			if p.Identity != me {
				people = append(people, p)
			}
		}
		a.app.QueueUpdateDraw(func() {
			a.search.Update(query, people)
			a.leaveConversation()
			a.pages.Reset(appstate.ViewChats)
			a.pages.Push(appstate.ViewSearch)
			a.focusCurrent()
			a.refresh()
		})
	}()
}

func (a *App) deleteConversation() {
	var id string
	if a.pages.Current() == appstate.ViewConversation {
		id = a.chat.OpenID()
		a.leaveConversation()
		a.pages.Reset(appstate.ViewChats)
		a.focusCurrent()
	} else {
		id = a.chats.SelectedID()
	}
	if id == "" {
		return
	}
	go func() {
		if err := a.chat.DeleteConversation(a.ctx, id); err != nil {
			a.state.Fail(fmt.Errorf("delete conversation: %w", err))
			return
		}
		a.state.Flash.Info("Conversation deleted")
		a.app.QueueUpdateDraw(a.refresh)
	}()
}

func (a *App) send() {
	go func() {
		err := a.chat.Send(a.ctx)
		switch {
		case err == nil,
			errors.Is(err, chat.ErrNothingToSend),
			errors.Is(err, chat.ErrNoConversation),
			errors.Is(err, chat.ErrSendInFlight):
		default:
			a.state.Fail(fmt.Errorf("message not sent: %w", err))
		}
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "quit":
		a.Stop()
	case "help":
		a.showHelp()
	case "chats":
		a.showChats()
	case "notifications":
		a.showNotifications()
	case "read":
		go func() {
			if err := a.notify.MarkAllRead(a.ctx); err != nil {
				a.state.Fail(fmt.Errorf("mark notifications read: %w", err))
			}
		}()
	case "chat":
		id, err := domain.ParseIdentity(cmd.Args)
		if err != nil {
			a.state.Fail(err)
			return
		}
		a.startOrResume(id)
	case "delete":
		a.deleteConversation()
	case "edit":
		m, ok := lastOwnMessage(a.chat.Timeline(), a.state.Identity.ID)
		if !ok {
			a.state.Flash.Warn("Nothing to edit")
			return
		}
		go func() {
			if err := a.chat.EditMessage(a.ctx, m.ID, cmd.Args); err != nil && !errors.Is(err, chat.ErrNothingToSend) {
				a.state.Fail(fmt.Errorf("edit: %w", err))
			}
		}()
	case "unsend":
		m, ok := lastOwnMessage(a.chat.Timeline(), a.state.Identity.ID)
		if !ok {
			a.state.Flash.Warn("Nothing to unsend")
			return
		}
		go func() {
			if err := a.chat.DeleteMessage(a.ctx, m.ID); err != nil {
				a.state.Fail(fmt.Errorf("unsend: %w", err))
			}
		}()
	default:
		a.state.Flash.Warn("Unknown command: " + cmd.Name)
	}
}

// lastOwnMessage is the newest stored message sent by me.
func lastOwnMessage(msgs []domain.Message, me string) (domain.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == me && !msgs[i].Optimistic {
			return msgs[i], true
		}
	}
	return domain.Message{}, false
}
