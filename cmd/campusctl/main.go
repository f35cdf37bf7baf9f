package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheus3301/campus/internal/client"
	"github.com/matheus3301/campus/internal/config"
	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/instance"
	"github.com/matheus3301/campus/internal/lock"
)

func main() {
	instituteFlag := flag.String("institute", "", "institute name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	roleFlag := flag.String("role", "", "restrict identity search to a role")
	unreadFlag := flag.Bool("unread", false, "list only unread notifications")
	sourceFlag := flag.String("source", "campusctl", "notification source")
	fromFlag := flag.String("from", "", "notification sender id (empty = system)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Resolve(instance.ConfigPath(), instance.EnvFilePath())
	if err != nil {
		fail(err)
	}

	if args[0] == "institutes" {
		cmdInstitutes(*jsonFlag)
		return
	}

	institute, err := instance.Select(*instituteFlag, cfg)
	if err != nil {
		fail(err)
	}

	c, err := client.New(instance.SocketPath(institute), nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for institute %q: %v\n", institute, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "identity":
		if len(args) < 2 {
			fail(fmt.Errorf("usage: campusctl identity <add|search> ..."))
		}
		switch args[1] {
		case "add":
			cmdIdentityAdd(ctx, c, institute, args[2:])
		case "search":
			cmdIdentitySearch(ctx, c, args[2:], *roleFlag, *jsonFlag)
		default:
			fail(fmt.Errorf("unknown identity subcommand: %s", args[1]))
		}
	case "notify":
		if len(args) < 3 {
			fail(fmt.Errorf("usage: campusctl notify <receiver-id> <message>"))
		}
		cmdNotify(ctx, c, args[1], strings.Join(args[2:], " "), *sourceFlag, *fromFlag, *jsonFlag)
	case "notifications":
		if len(args) < 2 {
			fail(fmt.Errorf("usage: campusctl notifications <receiver-id>"))
		}
		cmdNotifications(ctx, c, args[1], *unreadFlag, *jsonFlag)
	case "conversations":
		if len(args) < 2 {
			fail(fmt.Errorf("usage: campusctl conversations <user-id>"))
		}
		cmdConversations(ctx, c, args[1], *jsonFlag)
	case "send":
		if len(args) < 4 {
			fail(fmt.Errorf("usage: campusctl send <conversation-id> <role:id> <text>"))
		}
		cmdSend(ctx, c, args[1], args[2], strings.Join(args[3:], " "), *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: campusctl [--institute <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                               Show daemon status")
	fmt.Fprintln(os.Stderr, "  institutes                           List known institutes")
	fmt.Fprintln(os.Stderr, "  identity add <role:id> <name> [email] Create or update a profile")
	fmt.Fprintln(os.Stderr, "  identity search <query> [--role r]   Search profiles")
	fmt.Fprintln(os.Stderr, "  notify <receiver-id> <message>       Emit a notification")
	fmt.Fprintln(os.Stderr, "  notifications <receiver-id>          List notifications [--unread]")
	fmt.Fprintln(os.Stderr, "  conversations <user-id>              List conversations of a user")
	fmt.Fprintln(os.Stderr, "  send <conversation-id> <role:id> <text>  Send a message as someone")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// parseIdentity reads "role:id".
func cmdStatus(ctx context.Context, c *client.Client, jsonOut bool) {
	resp, err := c.Status(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Institute:   %s\n", resp.Institute)
	fmt.Printf("Status:      %s\n", resp.Status)
	fmt.Printf("Database:    %s\n", resp.Dialect)
	fmt.Printf("Subscribers: %d (dropped %d)\n", resp.Subscribers, resp.Dropped)
	fmt.Printf("Uptime:      %s\n", time.Duration(resp.UptimeMs)*time.Millisecond)
}

type instanceInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

func cmdInstitutes(jsonOut bool) {
	entries, err := os.ReadDir(filepath.Join(instance.BaseDir(), "institutes"))
	if err != nil && !os.IsNotExist(err) {
		fail(err)
	}
	var list []instanceInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := instance.Dir(e.Name())
		pid, held, err := lock.Holder(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", e.Name(), err)
		}
		list = append(list, instanceInfo{Name: e.Name(), Path: dir, Running: held, PID: pid})
	}
	if jsonOut {
		outputJSON(list)
		return
	}
	if len(list) == 0 {
		fmt.Println("No institutes found.")
		return
	}
	for _, in := range list {
		running := "stopped"
		if in.Running {
			running = fmt.Sprintf("running, pid %d", in.PID)
		}
		fmt.Printf("%-20s %s (%s)\n", in.Name, in.Path, running)
	}
}

func cmdIdentityAdd(ctx context.Context, c *client.Client, institute string, args []string) {
	if len(args) < 2 {
		fail(fmt.Errorf("usage: campusctl identity add <role:id> <name> [email]"))
	}
	id, err := domain.ParseIdentity(args[0])
	if err != nil {
		fail(err)
	}
	p := &domain.Profile{Identity: id, Name: args[1], InstituteID: institute}
	if len(args) > 2 {
		p.Email = args[2]
	}
	if err := c.UpsertProfile(ctx, p); err != nil {
		fail(err)
	}
	fmt.Printf("Saved %s (%s)\n", id, p.Name)
}

func cmdIdentitySearch(ctx context.Context, c *client.Client, args []string, role string, jsonOut bool) {
	var roles []domain.Role
	if role != "" {
		r, err := domain.ParseRole(role)
		if err != nil {
			fail(err)
		}
		roles = append(roles, r)
	}
	list, err := c.SearchProfiles(ctx, strings.Join(args, " "), roles, 0)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(list)
		return
	}
	if len(list) == 0 {
		fmt.Println("No identities found.")
		return
	}
	for _, p := range list {
		fmt.Printf("%-28s %-24s %s\n", p.Identity, p.Name, p.Email)
	}
}

func cmdNotify(ctx context.Context, c *client.Client, receiver, message, source, from string, jsonOut bool) {
	n := &domain.Notification{ReceiverID: receiver, Message: message, Source: source}
	if from != "" {
		n.SenderID = &from
	}
	if err := c.CreateNotification(ctx, n); err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(n)
		return
	}
	fmt.Printf("Notification %s sent to %s\n", n.ID, receiver)
}

func cmdNotifications(ctx context.Context, c *client.Client, receiver string, unreadOnly, jsonOut bool) {
	list, err := c.ListNotifications(ctx, receiver, unreadOnly, 0)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(list)
		return
	}
	if len(list) == 0 {
		fmt.Println("No notifications.")
		return
	}
	for _, n := range list {
		mark := " "
		if !n.Viewed {
			mark = "*"
		}
		fmt.Printf("%s %s  %-12s %s\n", mark, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Source, n.Message)
	}
}

func cmdConversations(ctx context.Context, c *client.Client, userID string, jsonOut bool) {
	list, err := c.ListConversations(ctx, userID)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(list)
		return
	}
	if len(list) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, conv := range list {
		last := "-"
		if !conv.LastMessageAt.IsZero() {
			last = conv.LastMessageAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-24s %-24s %s\n", conv.ID, conv.Participant1, conv.Participant2, last)
	}
}

func cmdSend(ctx context.Context, c *client.Client, conversationID, sender, text string, jsonOut bool) {
	id, err := domain.ParseIdentity(sender)
	if err != nil {
		fail(err)
	}
	m := &domain.Message{ConversationID: conversationID, SenderID: id.ID, SenderRole: id.Role, Text: text}
	if err := c.InsertMessage(ctx, m); err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(m)
		return
	}
	fmt.Printf("Message %s sent\n", m.ID)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
