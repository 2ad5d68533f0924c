package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
)

var permissionCmd = &cobra.Command{
	Use:     "permission",
	Aliases: []string{"perm", "p"},
	Short:   "List and answer pending permission requests",
	RunE:    runPermissionList,
}

var permissionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pending requests, newest first",
	RunE:    runPermissionList,
}

var permissionRespondCmd = &cobra.Command{
	Use:   "respond [request-id] [allow|deny|ask]",
	Short: "Answer a pending request",
	Long: `Answer a pending request. The blocked hook picks the answer up on its next poll.

Use --answer key=text (repeatable) to answer embedded questions. The key is
the question number shown by "hookwatch permission list" or the question text.`,
	Args: cobra.ExactArgs(2),
	RunE: runPermissionRespond,
}

var (
	respondMessage string
	respondAnswers []string
)

func init() {
	permissionRespondCmd.Flags().StringVarP(&respondMessage, "message", "m", "", "Reason shown to the agent on deny")
	permissionRespondCmd.Flags().StringArrayVar(&respondAnswers, "answer", nil, "Question answer as number=text or question=text")

	permissionCmd.AddCommand(permissionListCmd)
	permissionCmd.AddCommand(permissionRespondCmd)
}

func defaultBroadcaster() broadcast.Broadcaster {
	bc, err := broadcast.Default()
	if err != nil {
		return broadcast.Nop{}
	}
	return bc
}

func openGateway() (*permission.Gateway, error) {
	return permission.Default(config.LoadSettingsOrDefault(), defaultBroadcaster())
}

func runPermissionList(cmd *cobra.Command, args []string) error {
	gw, err := openGateway()
	if err != nil {
		return err
	}
	pending, err := gw.ListPending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending requests.")
		return nil
	}

	names := map[string]string{}
	if reg, err := openRegistry(); err == nil {
		for _, rec := range reg.Load() {
			names[rec.ID] = rec.Name
		}
	}

	now := time.Now()
	for _, req := range pending {
		session := names[req.SessionID]
		if session == "" {
			session = req.SessionID
		}
		fmt.Printf("%s  %s  %s  %s\n",
			styleHint.Render(req.ID),
			styleHeader.Render(req.ToolName),
			truncate(session, 24),
			styleLabel.Render(now.Sub(req.CreatedAt).Truncate(time.Second).String()+" ago"),
		)
		for i, q := range req.Questions {
			fmt.Printf("    %d. %s\n", i, q.Question)
			for _, opt := range q.Options {
				fmt.Printf("       - %s\n", opt.Label)
			}
		}
	}
	return nil
}

func runPermissionRespond(cmd *cobra.Command, args []string) error {
	decision, ok := models.ParseDecision(strings.ToLower(args[1]))
	if !ok {
		return fmt.Errorf("invalid decision %q (expected allow, deny or ask)", args[1])
	}
	gw, err := openGateway()
	if err != nil {
		return err
	}

	var answers map[string]string
	if len(respondAnswers) > 0 {
		req, err := gw.Get(args[0])
		if err != nil {
			return fmt.Errorf("request %s is not pending: %w", args[0], err)
		}
		if answers, err = parseAnswers(req.Questions, respondAnswers); err != nil {
			return err
		}
	}
	if err := gw.Respond(args[0], decision, respondMessage, answers); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render("✓"), "Answered", args[0], "with", string(decision))
	return nil
}

// parseAnswers turns key=text pairs into the gateway's answer map, which is
// keyed by question text. A key is a question number or the question itself.
func parseAnswers(questions []models.Question, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	answers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid answer %q (expected number=text)", pair)
		}
		question, err := resolveQuestion(questions, key)
		if err != nil {
			return nil, err
		}
		answers[question] = value
	}
	return answers, nil
}

func resolveQuestion(questions []models.Question, key string) (string, error) {
	if i, err := strconv.Atoi(key); err == nil {
		if i < 0 || i >= len(questions) {
			return "", fmt.Errorf("question %d out of range (request has %d)", i, len(questions))
		}
		return questions[i].Question, nil
	}
	for _, q := range questions {
		if q.Question == key {
			return key, nil
		}
	}
	return "", fmt.Errorf("unknown question %q", key)
}
