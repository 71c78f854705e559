package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/usecase"
)

// repl is the line-oriented terminal frontend. Plain lines are sent to the
// model; slash commands manage sessions and config.
type repl struct {
	store *usecase.SessionStore
	chat  *usecase.ChatUC
	log   *zerolog.Logger

	mu      sync.Mutex
	printed map[int64]int // messageID -> bytes already written to the terminal
	lastMsg int64         // assistant message of the in-flight request, 0 when idle
}

func newREPL(store *usecase.SessionStore, chat *usecase.ChatUC, logger *zerolog.Logger) *repl {
	l := logger.With().Str("component", "repl").Logger()
	r := &repl{store: store, chat: chat, log: &l, printed: map[int64]int{}}
	store.SetOnChange(r.onChange)
	return r
}

// onChange streams assistant output as it grows. Content is cumulative, so
// only the unseen suffix is printed.
func (r *repl) onChange(ev usecase.ChangeEvent) {
	if ev.MessageID == 0 {
		return
	}
	cur := r.store.CurrentSession()
	if cur == nil || cur.ID != ev.SessionID {
		return
	}
	var content string
	var streaming bool
	var found bool
	_ = r.store.ReadSession(ev.SessionID, func(s *model.ChatSession) {
		if m := s.MessageByID(ev.MessageID); m != nil && m.Role == model.RoleAssistant {
			content, streaming, found = m.Content, m.Streaming, true
		}
	})
	if !found {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.printed[ev.MessageID]
	if len(content) > n {
		fmt.Print(content[n:])
		r.printed[ev.MessageID] = len(content)
	}
	if streaming {
		r.lastMsg = ev.MessageID
	} else if r.lastMsg == ev.MessageID {
		fmt.Println()
		r.lastMsg = 0
		delete(r.printed, ev.MessageID)
	}
}

func (r *repl) run(ctx context.Context) {
	fmt.Println("terminal-ai-chat. /help lists commands; /quit exits.")
	r.prompt()

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			r.prompt()
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line, sc); quit {
				return
			}
			r.prompt()
			continue
		}
		if _, err := r.chat.SendMessage(ctx, line); err != nil {
			fmt.Printf("error: %v\n", err)
			r.prompt()
		}
		// the prompt returns after the stream settles; keep it simple and
		// let the next input line interleave
	}
}

func (r *repl) prompt() {
	cur := r.store.CurrentSession()
	topic := model.DefaultTopic
	if cur != nil {
		topic = cur.Topic
	}
	fmt.Printf("[%d/%d %s] > ", r.store.CurrentIndex()+1, r.store.Len(), topic)
}

func (r *repl) command(ctx context.Context, line string, sc *bufio.Scanner) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Print(`commands:
  /new               start a new session
  /list              list sessions
  /select <n>        switch to session n
  /move <from> <to>  reorder sessions
  /del               delete current session (undo with /undo)
  /undo              restore the just-deleted session
  /stop              stop the in-flight generation
  /reset             clear messages of the current session
  /topic <text>      set the session topic
  /memory [on|off]   toggle memory recap for this session
  /model <name>      set the chat model
  /config            show the chat config
  /quit              exit
`)

	case "/new":
		s := r.store.NewSession()
		fmt.Printf("new session %s\n", s.ID)

	case "/list":
		for i, sum := range r.store.Summaries() {
			marker := " "
			if sum.Current {
				marker = "*"
			}
			fmt.Printf("%s %2d  %-30s  %d messages  %s\n", marker, i+1, sum.Topic, sum.MessageCount, sum.LastUpdate.Format("2006/01/02 15:04"))
		}

	case "/select":
		n, err := argIndex(args, r.store.Len())
		if err != nil {
			fmt.Println(err)
			break
		}
		r.store.SelectSession(n)

	case "/move":
		if len(args) != 2 {
			fmt.Println("usage: /move <from> <to>")
			break
		}
		from, err1 := strconv.Atoi(args[0])
		to, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			fmt.Println("usage: /move <from> <to>")
			break
		}
		r.store.MoveSession(from-1, to-1)

	case "/del":
		if r.store.Len() == 1 && !confirm(sc, "delete the only session and start fresh? [y/N] ") {
			break
		}
		r.store.DeleteCurrentSession()
		fmt.Println("session deleted, /undo to restore")

	case "/undo":
		switch err := r.store.RestoreSession(); err {
		case nil:
			fmt.Println("session restored")
		case domain.ErrRevertExpired:
			fmt.Println("too late, the undo window has passed")
		case domain.ErrNothingToRevert:
			fmt.Println("nothing to restore")
		default:
			fmt.Printf("error: %v\n", err)
		}

	case "/stop":
		r.chat.StopAll()

	case "/reset":
		r.store.ResetSession()
		fmt.Println("session cleared")

	case "/topic":
		if len(args) == 0 {
			fmt.Println("usage: /topic <text>")
			break
		}
		topic := strings.Join(args, " ")
		r.store.UpdateCurrentSession(func(s *model.ChatSession) { s.Topic = topic })

	case "/memory":
		r.store.UpdateCurrentSession(func(s *model.ChatSession) {
			switch {
			case len(args) == 0:
				s.SendMemory = !s.SendMemory
			case args[0] == "on":
				s.SendMemory = true
			case args[0] == "off":
				s.SendMemory = false
			}
			fmt.Printf("memory recap: %v\n", s.SendMemory)
		})

	case "/model":
		if len(args) == 0 {
			fmt.Printf("model: %s (available: %s)\n", r.store.Config().ModelConfig.Model, strings.Join(model.AvailableModels, ", "))
			break
		}
		r.store.UpdateConfig(func(c *model.ChatConfig) { c.ModelConfig.Model = args[0] })
		fmt.Printf("model: %s\n", r.store.Config().ModelConfig.Model)

	case "/config":
		c := r.store.Config()
		fmt.Printf("model=%s temperature=%.2f max_tokens=%d presence_penalty=%.2f history=%d compress_threshold=%d\n",
			c.ModelConfig.Model, c.ModelConfig.Temperature, c.ModelConfig.MaxTokens, c.ModelConfig.PresencePenalty,
			c.HistoryMessageCount, c.CompressMessageLengthThreshold)

	default:
		fmt.Printf("unknown command %s, /help lists commands\n", cmd)
	}
	return false
}

func argIndex(args []string, max int) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one session number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("session number must be 1..%d", max)
	}
	return n - 1, nil
}

func confirm(sc *bufio.Scanner, q string) bool {
	fmt.Print(q)
	if !sc.Scan() {
		return false
	}
	a := strings.ToLower(strings.TrimSpace(sc.Text()))
	return a == "y" || a == "yes"
}
