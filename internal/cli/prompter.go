package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/decision"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
	"github.com/schollz/progressbar/v3"
)

// ReviewPrompter implements the interactive review loop for categorization
// proposals. Each proposal is shown with its suggested category and
// confidence; the reviewer approves, rejects, modifies or quits.
type ReviewPrompter struct {
	startTime time.Time
	writer    io.Writer
	reader    *NonBlockingReader
	bar       *progressbar.ProgressBar
	stats     service.CompletionStats
	statsMu   sync.Mutex
}

// NewReviewPrompter creates a review prompter with the given reader and writer.
func NewReviewPrompter(reader io.Reader, writer io.Writer) *ReviewPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &ReviewPrompter{
		reader:    NewNonBlockingReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// Review presents one pending proposal and returns the reviewer's decision.
// End of input is treated as quit, not an error, so piped sessions terminate
// cleanly with a partial batch.
func (p *ReviewPrompter) Review(ctx context.Context, item decision.ReviewItem, position, total int) (decision.Decision, error) {
	select {
	case <-ctx.Done():
		return decision.Decision{}, ctx.Err()
	default:
	}

	p.updateProgress(position, total)

	content := p.formatProposal(item)
	if _, err := fmt.Fprintln(p.writer, RenderBox(fmt.Sprintf("Proposal %d/%d", position, total), content)); err != nil {
		return decision.Decision{}, fmt.Errorf("failed to write proposal box: %w", err)
	}

	if _, err := fmt.Fprintln(p.writer, "  [A] Approve suggestion"); err != nil {
		return decision.Decision{}, fmt.Errorf("failed to write approve option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [R] Reject (leave uncategorized)"); err != nil {
		return decision.Decision{}, fmt.Errorf("failed to write reject option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [M] Modify category"); err != nil {
		return decision.Decision{}, fmt.Errorf("failed to write modify option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [Q] Quit (keep decisions so far)"); err != nil {
		return decision.Decision{}, fmt.Errorf("failed to write quit option: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice [A/R/M/Q]", []string{"a", "r", "m", "q"})
	if errors.Is(err, io.EOF) {
		return decision.Decision{Action: decision.ActionQuit}, nil
	}
	if err != nil {
		return decision.Decision{}, err
	}

	switch choice {
	case "a":
		p.incrementStats(decision.StateApproved)
		return decision.Decision{Action: decision.ActionApprove}, nil
	case "r":
		p.incrementStats(decision.StateRejected)
		return decision.Decision{Action: decision.ActionReject}, nil
	case "m":
		label, err := p.promptLabel(ctx)
		if errors.Is(err, io.EOF) {
			return decision.Decision{Action: decision.ActionQuit}, nil
		}
		if err != nil {
			return decision.Decision{}, err
		}
		category, subcategory := model.SplitLabel(label)
		p.incrementStats(decision.StateModified)
		return decision.Decision{
			Action:      decision.ActionModify,
			Category:    category,
			Subcategory: subcategory,
		}, nil
	case "q":
		return decision.Decision{Action: decision.ActionQuit}, nil
	}

	return decision.Decision{}, fmt.Errorf("unexpected choice: %s", choice)
}

// GetCompletionStats returns statistics about the review session.
func (p *ReviewPrompter) GetCompletionStats() service.CompletionStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	stats := p.stats
	stats.Duration = time.Since(p.startTime)
	return stats
}

func (p *ReviewPrompter) formatProposal(item decision.ReviewItem) string {
	txn := item.Transaction

	confidence := fmt.Sprintf("%.0f%%", item.Confidence*100)
	if item.Confidence < 0.8 {
		confidence = WarningStyle.Render(confidence)
	} else {
		confidence = SuccessStyle.Render(confidence)
	}

	lines := []string{
		fmt.Sprintf("Description: %s", txn.Description),
		fmt.Sprintf("Amount:      %.2f", txn.Amount),
		fmt.Sprintf("Date:        %s", txn.Date.Format("2006-01-02")),
		fmt.Sprintf("Account:     %s", txn.AccountID),
		"",
		fmt.Sprintf("Suggested:   %s (%s confidence)",
			SuccessStyle.Render(model.JoinLabel(item.Category, item.Subcategory)), confidence),
	}
	return strings.Join(lines, "\n")
}

func (p *ReviewPrompter) promptChoice(ctx context.Context, prompt string, valid []string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(strings.TrimSpace(line))
		for _, v := range valid {
			if choice == v {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatWarning(fmt.Sprintf("Please enter one of: %s", strings.Join(valid, ", ")))); err != nil {
			return "", fmt.Errorf("failed to write validation warning: %w", err)
		}
	}
}

func (p *ReviewPrompter) promptLabel(ctx context.Context) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt("Category[:Subcategory]")); err != nil {
			return "", fmt.Errorf("failed to write label prompt: %w", err)
		}

		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}

		label := strings.TrimSpace(line)
		if label != "" {
			return label, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatWarning("Category cannot be empty")); err != nil {
			return "", fmt.Errorf("failed to write validation warning: %w", err)
		}
	}
}

func (p *ReviewPrompter) updateProgress(position, total int) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionSetDescription("Reviewing proposals"),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(position - 1)
	_, _ = fmt.Fprintln(p.writer)
}

func (p *ReviewPrompter) incrementStats(state decision.ReviewState) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.TotalReviewed++
	switch state {
	case decision.StateApproved:
		p.stats.Approved++
	case decision.StateRejected:
		p.stats.Rejected++
	case decision.StateModified:
		p.stats.Modified++
	case decision.StatePending:
	}
}
