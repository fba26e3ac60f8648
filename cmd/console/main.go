// Command console is a terminal operator client.
//
//	/login <user> <password>   authenticate
//	/chats                     print the chat list
//	/open <n|userId>           select a conversation
//	/t                         signal typing to the selected visitor
//	/q                         quit
//
// Any other line is sent as a reply to the selected visitor.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/cwrk-planet/support-relay/pkg/admin"
	"github.com/cwrk-planet/support-relay/pkg/logger"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
)

func main() {
	var (
		apiURL = flag.String("api", supportclient.BaseURLFromEnv(), "relay base url")
		user   = flag.String("user", "", "log in with this username on start")
		pass   = flag.String("password", os.Getenv("SUPPORT_ADMIN_PASSWORD"), "password for -user")
		level  = flag.String("log", "warn", "log level")
	)
	flag.Parse()

	logger.Init(logger.Config{Service: "support-console", Backend: logger.BackendStd, Level: logger.ParseLevel(*level), Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := newRenderer(os.Stdout)
	store := admin.NewStore(admin.Config{
		API:      supportclient.NewAPI(supportclient.Options{BaseURL: *apiURL}),
		Session:  supportclient.NewSession(supportclient.SessionConfig{BaseURL: *apiURL}),
		OnChange: r.render,
	})
	if *user != "" {
		store.Dispatch(admin.Login{Username: *user, Password: *pass})
	}

	go func() {
		defer stop()
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			cmd, arg, _ := strings.Cut(line, " ")
			switch cmd {
			case "":
			case "/q":
				return
			case "/login":
				u, p, _ := strings.Cut(strings.TrimSpace(arg), " ")
				store.Dispatch(admin.Login{Username: u, Password: strings.TrimSpace(p)})
			case "/chats":
				r.printChats(store.State())
			case "/open":
				store.Dispatch(admin.Select{UserID: resolveChat(store.State(), strings.TrimSpace(arg))})
			case "/t":
				store.Dispatch(admin.Keystroke{})
			default:
				store.Dispatch(admin.Reply{Content: line})
			}
		}
	}()

	_ = store.Run(ctx)
}

// resolveChat accepts a 1-based index into the chat list or a visitor id.
func resolveChat(s admin.State, arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(s.Chats) {
		return s.Chats[n-1].ID
	}
	return arg
}

type renderer struct {
	mu         sync.Mutex
	out        io.Writer
	status     supportclient.Status
	authed     bool
	chats      int
	selected   string
	printed    map[string]struct{} // message ids shown for the selected thread
	userTyping bool
	lastError  string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, printed: make(map[string]struct{})}
}

func (r *renderer) render(s admin.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Status != r.status {
		r.status = s.Status
		fmt.Fprintf(r.out, "* %s\n", s.Status)
	}
	if s.Authenticated && !r.authed {
		r.authed = true
		fmt.Fprintln(r.out, "* logged in")
	}
	if len(s.Chats) != r.chats {
		r.chats = len(s.Chats)
		fmt.Fprintf(r.out, "* %d chats (/chats to list)\n", r.chats)
	}
	if s.Selected != r.selected {
		r.selected = s.Selected
		clear(r.printed)
		fmt.Fprintf(r.out, "--- %s ---\n", threadTitle(s))
	}
	// history can merge in ahead of messages already shown
	for _, m := range s.Messages {
		if _, ok := r.printed[m.ID]; ok {
			continue
		}
		r.printed[m.ID] = struct{}{}
		fmt.Fprintf(r.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), m.Sender, m.Content)
	}
	if s.UserTyping != r.userTyping {
		r.userTyping = s.UserTyping
		if s.UserTyping {
			fmt.Fprintln(r.out, "* visitor is typing...")
		}
	}
	if s.LastError != "" && s.LastError != r.lastError {
		fmt.Fprintf(r.out, "! %s\n", s.LastError)
	}
	r.lastError = s.LastError
}

func threadTitle(s admin.State) string {
	c, ok := s.SelectedChat()
	if !ok {
		return s.Selected
	}
	if c.Online != nil && *c.Online {
		return c.ID + " (online)"
	}
	return c.ID
}

func (r *renderer) printChats(s admin.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(s.Chats) == 0 {
		fmt.Fprintln(r.out, "no chats")
		return
	}
	for i, c := range s.Chats {
		mark := " "
		if c.ID == s.Selected {
			mark = ">"
		}
		online := ""
		if c.Online != nil && *c.Online {
			online = " (online)"
		}
		fmt.Fprintf(r.out, "%s %2d. %s%s  %s\n", mark, i+1, c.ID, online, c.Preview())
	}
}
