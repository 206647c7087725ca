package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/renderers/tui"
	"github.com/goliatone/go-dynforms/pkg/session"
)

const closeTimeout = 5 * time.Second

var fillRestoreOnline bool

var fillCmd = &cobra.Command{
	Use:   "fill [form-id]",
	Short: "Fill a form in the terminal",
	Long: `Opens a session on the configured catalog and cache, restores any cached
progress, and prompts for each question. Answers are cached as they are
given. When offline, submitting keeps the answers cached until a later
submission succeeds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().BoolVar(&fillRestoreOnline, "resume", true, "restore cached progress even when online")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	loader, src, err := catalogFor(cfg)
	if err != nil {
		return err
	}
	store, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	signal, probe, err := signalFor(cfg, logger)
	if err != nil {
		return err
	}
	if probe != nil {
		probe.Check(ctx)
		probe.Start(ctx)
		defer probe.Stop()
	}

	sess := session.New(
		session.WithStorage(store),
		session.WithSignal(signal),
		session.WithSink(sinkFor(cfg, logger)),
		session.WithCatalog(loader, src),
		session.WithPollInterval(cfg.PollInterval),
		session.WithLogger(logger),
		session.WithRestoreOnline(fillRestoreOnline),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			logger.Warn("session close", zap.Error(err))
		}
	}()

	restored, err := sess.Start(ctx)
	if err != nil {
		return err
	}
	if _, err := sess.Refresh(ctx); err != nil && len(sess.Forms()) == 0 {
		return fmt.Errorf("load catalog: %w", err)
	}

	driver := tui.NewSurveyDriver(out)
	formID, err := chooseForm(ctx, driver, sess, args, restored != nil)
	if err != nil {
		return err
	}
	if restored != nil && restored.FormID == formID {
		fmt.Fprintf(out, "Resuming %d cached answers.\n", restored.Answers)
	}
	if err := sess.Select(formID); err != nil {
		return err
	}
	form, _ := sess.ActiveForm()

	filler, err := tui.New(sess, tui.WithPromptDriver(driver))
	if err != nil {
		return err
	}
	result, err := filler.Fill(ctx, form)
	if errors.Is(err, tui.ErrAborted) {
		fmt.Fprintln(out, "Stopped. Your answers are cached.")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Debug("fill finished",
		zap.String("form_id", formID.String()),
		zap.Int("answered", result.Answered),
		zap.Bool("submitted", result.Submitted),
	)
	return nil
}

// chooseForm picks the argument, then the restored selection, then asks.
func chooseForm(ctx context.Context, driver tui.PromptDriver, sess *session.Session, args []string, restored bool) (model.ID, error) {
	if len(args) == 1 {
		return model.ID(args[0]), nil
	}
	if restored {
		if form, ok := sess.ActiveForm(); ok {
			return form.ID, nil
		}
	}

	forms := sess.Forms()
	switch len(forms) {
	case 0:
		return "", errors.New("the catalog has no forms")
	case 1:
		return forms[0].ID, nil
	}
	titles := make([]string, 0, len(forms))
	for _, form := range forms {
		titles = append(titles, form.Title)
	}
	idx, err := driver.Select(ctx, tui.SelectConfig{Message: "Choose a form", Options: titles})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(forms) {
		return "", errors.New("no form chosen")
	}
	return forms[idx].ID, nil
}
