package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/dgallion1/policychat/internal/chatclient"
	"github.com/dgallion1/policychat/internal/config"
	"github.com/dgallion1/policychat/internal/page"
	"github.com/dgallion1/policychat/internal/render"
)

const help = `Commands:
  /load [url]        load a document (uses the current URL when none is given)
  /url <url>         set the URL sent with questions
  /cftdti on|off     toggle the Temporary Duty Travel Instructions
  /cbi on|off        toggle the Compensation and Benefits Instructions
  /simplify          toggle plain-language answers
  /dark              toggle dark mode for exports
  /suggest           list suggested questions
  /ask <n>           ask suggested question n
  /export <file>     write the transcript as HTML
  /status            show the session settings
  /quit              exit
Anything else is sent as a question.`

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := config.LoadDotEnv(); err != nil {
		log.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.LoadClient()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backend := chatclient.NewAPIClient(cfg.ProxyURL, cfg.Timeout)
	fetcher := page.NewFetcher(cfg.Timeout, cfg.MaxPageBytes, log)
	d := chatclient.NewDispatcher(backend, fetcher, cfg.Timeout, log)

	d.Transcript().OnAppend(func(m chatclient.Message) {
		who := "bot"
		if m.Role == render.RoleUser {
			who = "you"
		}
		fmt.Printf("[%s] %s\n\n", who, m.Text)
	})

	fmt.Printf("policychat (proxy %s). Type /help for commands.\n\n", cfg.ProxyURL)
	printSuggestions(os.Stdout, d.Suggestions())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if quit := handleLine(ctx, d, strings.TrimSpace(scanner.Text())); quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("read input", "error", err)
		os.Exit(1)
	}
}

func handleLine(ctx context.Context, d *chatclient.Dispatcher, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		d.SendMessage(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println(help)
	case "/url":
		d.SetURL(arg)
	case "/load":
		if arg != "" {
			d.SetURL(arg)
		}
		if !d.LoadURL(ctx) {
			fmt.Println("nothing to load: set a URL first")
			return false
		}
		printSuggestions(os.Stdout, d.Suggestions())
	case "/cftdti", "/cbi":
		on, ok := parseSwitch(arg)
		if !ok {
			fmt.Printf("usage: %s on|off\n", cmd)
			return false
		}
		var changed bool
		if cmd == "/cftdti" {
			changed = d.SetCFTDTI(ctx, on)
		} else {
			changed = d.SetCBI(ctx, on)
		}
		if !changed {
			fmt.Printf("%s is already %s\n", strings.TrimPrefix(cmd, "/"), arg)
			return false
		}
		printSuggestions(os.Stdout, d.Suggestions())
	case "/simplify":
		fmt.Printf("simplify: %s\n", onOff(d.ToggleSimplify()))
	case "/dark":
		fmt.Printf("dark mode: %s\n", onOff(d.ToggleDarkMode()))
	case "/suggest":
		printSuggestions(os.Stdout, d.Suggestions())
	case "/ask":
		qs := d.Suggestions()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(qs) {
			fmt.Printf("usage: /ask 1-%d\n", len(qs))
			return false
		}
		d.SendMessage(ctx, qs[n-1])
	case "/export":
		if arg == "" {
			fmt.Println("usage: /export <file>")
			return false
		}
		out, err := d.ExportHTML()
		if err == nil {
			err = os.WriteFile(arg, []byte(out), 0o644)
		}
		if err != nil {
			fmt.Printf("export failed: %v\n", err)
			return false
		}
		fmt.Printf("wrote %s\n", arg)
	case "/status":
		content, loaded := d.Content()
		fmt.Printf("policy: %s\nurl: %s\nsimplify: %s\ndark mode: %s\n",
			d.Policy(), d.URL(), onOff(d.Simplify()), onOff(d.DarkMode()))
		if loaded {
			fmt.Printf("document: %d characters, %d sentences\n", len([]rune(content)), len(d.Sentences()))
		} else {
			fmt.Println("document: none")
		}
	default:
		fmt.Printf("unknown command %s, try /help\n", cmd)
	}
	return false
}

func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printSuggestions(w io.Writer, qs []string) {
	fmt.Fprintln(w, "Suggested questions:")
	for i, q := range qs {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
	fmt.Fprintln(w)
}
