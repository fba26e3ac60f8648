// Command widget is a terminal visitor client. Each input line is sent as a message; "/t" signals
// typing, "/q" quits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cwrk-planet/support-relay/pkg/logger"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
	"github.com/cwrk-planet/support-relay/pkg/widget"
)

func main() {
	var (
		apiURL   = flag.String("api", supportclient.BaseURLFromEnv(), "relay base url")
		identity = flag.String("identity", widget.DefaultIdentityPath(), "file holding the visitor id")
		userID   = flag.String("id", "", "visitor id (overrides -identity)")
		level    = flag.String("log", "warn", "log level")
	)
	flag.Parse()

	logger.Init(logger.Config{Service: "support-widget", Backend: logger.BackendStd, Level: logger.ParseLevel(*level), Output: os.Stderr})

	id := *userID
	if id == "" {
		var err error
		if id, err = (widget.FileIdentity{Path: *identity}).Load(); err != nil {
			log.Fatalf("identity: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := newRenderer(os.Stdout)
	store := widget.NewStore(widget.Config{
		API:      supportclient.NewAPI(supportclient.Options{BaseURL: *apiURL}),
		Session:  supportclient.NewSession(supportclient.SessionConfig{BaseURL: *apiURL}),
		UserID:   id,
		OnChange: r.render,
	})
	fmt.Fprintf(r.out, "chat support (%s) as %s\n", *apiURL, id)

	go func() {
		defer stop()
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			switch line {
			case "":
			case "/q":
				return
			case "/t":
				store.Dispatch(widget.Keystroke{})
			default:
				store.Dispatch(widget.Send{Content: line})
			}
		}
	}()

	_ = store.Run(ctx)
}

type renderer struct {
	out         io.Writer
	printed     map[string]struct{}
	status      widget.Status
	adminTyping bool
	lastError   string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, printed: make(map[string]struct{})}
}

func (r *renderer) render(s widget.State) {
	if s.Status != r.status {
		r.status = s.Status
		fmt.Fprintf(r.out, "* %s\n", s.Status)
	}
	for _, m := range s.Messages {
		if _, ok := r.printed[m.ID]; ok {
			continue
		}
		r.printed[m.ID] = struct{}{}
		who := "you"
		if m.Sender != "user" {
			who = "support"
		}
		fmt.Fprintf(r.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
	}
	if s.AdminTyping != r.adminTyping {
		r.adminTyping = s.AdminTyping
		if s.AdminTyping {
			fmt.Fprintln(r.out, "* support is typing...")
		}
	}
	if s.LastError != "" && s.LastError != r.lastError {
		fmt.Fprintf(r.out, "! %s\n", s.LastError)
	}
	r.lastError = s.LastError
}
