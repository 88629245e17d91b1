package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/analyst-agent/internal/adapters/storage/snapshot"
	"github.com/PabloGalante/analyst-agent/internal/app/conversation"
	"github.com/PabloGalante/analyst-agent/internal/app/report"
	"github.com/PabloGalante/analyst-agent/internal/app/workflow"
	"github.com/PabloGalante/analyst-agent/internal/domain"
)

var (
	analystStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	noticeStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle  = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
)

const chatHelp = `Commands:
  /report [html|markdown]  show the requirements document
  /diagram                 show the architecture diagram
  /reset                   drop the generated artifacts
  /save [path]             save the session as a YAML snapshot
  /help                    show this help
  /quit                    leave (saves when --save is set)`

var (
	chatUser  string
	chatTitle string
	chatLoad  string
	chatSave  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interview in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		svcs, err := buildServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svcs.close()

		id, err := openChatSession(ctx, svcs.conversation, chatLoad, chatUser, chatTitle)
		if err != nil {
			return err
		}

		c := &chat{
			svc:       svcs.conversation,
			reports:   svcs.reports,
			sessionID: id,
			savePath:  chatSave,
			out:       cmd.OutOrStdout(),
		}
		return c.run(ctx, cmd.InOrStdin())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", defaultUser(), "user id recorded on the session")
	chatCmd.Flags().StringVar(&chatTitle, "title", "", "session title")
	chatCmd.Flags().StringVar(&chatLoad, "load", "", "resume the session stored in this YAML snapshot")
	chatCmd.Flags().StringVar(&chatSave, "save", "", "save the session to this YAML snapshot on exit")

	rootCmd.AddCommand(chatCmd)
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// openChatSession resumes a snapshot when loadPath is set, otherwise starts
// a new session.
func openChatSession(ctx context.Context, svc *conversation.Service, loadPath, user, title string) (domain.SessionID, error) {
	if loadPath != "" {
		session, err := snapshot.LoadFile(loadPath)
		if err != nil {
			return "", err
		}
		if err := svc.ImportSession(ctx, session); err != nil {
			return "", err
		}
		return session.ID, nil
	}

	out, err := svc.StartSession(ctx, conversation.StartSessionInput{
		UserID: domain.UserID(user),
		Title:  title,
	})
	if err != nil {
		return "", err
	}
	return out.Session.ID, nil
}

type chat struct {
	svc       *conversation.Service
	reports   *report.Service
	sessionID domain.SessionID
	savePath  string
	out       io.Writer
}

func (c *chat) run(ctx context.Context, in io.Reader) error {
	session, err := c.svc.GetSession(ctx, c.sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, headerStyle.Render("analyst")+" "+noticeStyle.Render("type /help for commands"))
	if last, ok := session.State.LastAssistantMessage(); ok {
		c.say(last.Text)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil {
				c.fail(err)
			}
			if quit {
				break
			}
			continue
		}

		out, err := c.svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: c.sessionID,
			UserID:    session.UserID,
			Text:      line,
		})
		if err != nil {
			c.fail(err)
			continue
		}

		c.say(out.Reply.Text)
		if out.Route == workflow.RouteFinalize {
			fmt.Fprintln(c.out, noticeStyle.Render("The document is ready: /report to read it, /diagram for the architecture."))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if c.savePath != "" {
		return c.save(ctx, c.savePath)
	}
	return nil
}

// command runs a slash command and reports whether the chat should end.
func (c *chat) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(c.out, chatHelp)

	case "/report":
		format, err := report.ParseFormat(arg)
		if err != nil {
			return false, err
		}
		doc, err := c.reports.Render(ctx, c.sessionID, format)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, doc.Body)
		if link, ok := doc.Status["link"].(string); ok && link != "" {
			fmt.Fprintln(c.out, noticeStyle.Render("publish to: "+link))
		}

	case "/diagram":
		diagram, err := c.reports.Diagram(ctx, c.sessionID)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, diagram)

	case "/reset":
		if _, err := c.svc.ResetArtifacts(ctx, c.sessionID); err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, noticeStyle.Render("Generated artifacts dropped. Agree again to regenerate them."))

	case "/save":
		path := arg
		if path == "" {
			path = c.savePath
		}
		if path == "" {
			return false, errors.New("no path: use /save <path> or start with --save")
		}
		if err := c.save(ctx, path); err != nil {
			return false, err
		}

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return false, nil
}

func (c *chat) save(ctx context.Context, path string) error {
	session, err := c.svc.GetSession(ctx, c.sessionID)
	if err != nil {
		return err
	}
	if err := snapshot.SaveFile(path, session); err != nil {
		return err
	}
	fmt.Fprintln(c.out, noticeStyle.Render("session saved to "+path))
	return nil
}

func (c *chat) say(text string) {
	fmt.Fprintln(c.out, analystStyle.Render("analyst>")+" "+text)
}

func (c *chat) fail(err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, report.ErrNotReady):
		msg = "nothing generated yet: agree to generate the document first"
	case domain.IsCapabilityError(err):
		msg = "the model did not answer, try again: " + err.Error()
	}
	fmt.Fprintln(c.out, errorStyle.Render("error: "+msg))
}
