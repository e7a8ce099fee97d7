package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newNewCommand(opts *options) *cobra.Command {
	var (
		text    string
		starred bool
	)

	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a new note",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runNew(ctx, args[0], text, starred)
		}),
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Initial note text")
	cmd.Flags().BoolVarP(&starred, "star", "s", false, "Mark note as starred")

	return cmd
}

func (c *Cli) runNew(ctx context.Context, title, text string, starred bool) error {
	id, err := c.notes.Create(ctx, title, text, starred)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	c.pushQuietly(ctx)

	c.io.Printf("✓ Note created: %s\n", id)
	return nil
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runShow(ctx, args[0])
		}),
	}
}

func (c *Cli) runShow(ctx context.Context, id string) error {
	note, err := c.notes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	title := note.Title
	if title == "" {
		title = "(untitled)"
	}
	if note.Starred {
		title = "★ " + title
	}

	c.io.Println("=== " + title + " ===")
	c.io.Printf("ID: %s\n", note.ID)
	c.io.Println()
	if note.Content != "" {
		c.io.Println(note.Content)
	}
	return nil
}

func newAppendCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "append <id> [text...]",
		Short: "Append text to a note (reads a line from stdin if text is omitted)",
		Args:  cobra.MinimumNArgs(1),
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runAppend(ctx, args[0], strings.Join(args[1:], " "))
		}),
	}
}

func (c *Cli) runAppend(ctx context.Context, id, text string) error {
	if text == "" {
		input, err := c.io.ReadInput("Text: ")
		if err != nil {
			return fmt.Errorf("failed to read text: %w", err)
		}
		text = input
	}
	if text == "" {
		return errors.New("nothing to append")
	}

	if err := c.notes.Append(ctx, id, text); err != nil {
		return fmt.Errorf("failed to append text: %w", err)
	}
	c.pushQuietly(ctx)

	c.io.Println("✓ Text appended")
	return nil
}

func newTitleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "title <id> <title>",
		Short: "Rename a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runTitle(ctx, args[0], strings.Join(args[1:], " "))
		}),
	}
}

func (c *Cli) runTitle(ctx context.Context, id, title string) error {
	if err := c.notes.SetTitle(ctx, id, title); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	c.pushQuietly(ctx)

	c.io.Println("✓ Title updated")
	return nil
}

func newStarCommand(opts *options) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "star <id>",
		Short: "Star or unstar a note",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runStar(ctx, args[0], !off)
		}),
	}
	cmd.Flags().BoolVar(&off, "off", false, "Remove the star")

	return cmd
}

func (c *Cli) runStar(ctx context.Context, id string, starred bool) error {
	if err := c.notes.SetStarred(ctx, id, starred); err != nil {
		return fmt.Errorf("failed to update star: %w", err)
	}
	c.pushQuietly(ctx)

	if starred {
		c.io.Println("✓ Note starred")
	} else {
		c.io.Println("✓ Star removed")
	}
	return nil
}

func newListCommand(opts *options) *cobra.Command {
	var starredOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, c *Cli, _ []string) error {
			return c.runList(ctx, starredOnly)
		}),
	}
	cmd.Flags().BoolVar(&starredOnly, "starred", false, "Show only starred notes")

	return cmd
}

func (c *Cli) runList(ctx context.Context, starredOnly bool) error {
	notes, err := c.notes.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	c.io.Println("=== Notes ===")
	c.io.Println()

	shown := 0
	for _, note := range notes {
		if starredOnly && !note.Starred {
			continue
		}
		shown++

		star := " "
		if note.Starred {
			star = "★"
		}
		title := note.Title
		if title == "" {
			title = "(untitled)"
		}
		c.io.Printf("%s %s  %s (%d chars)\n", star, note.ID, title, len([]rune(note.Content)))
	}

	if shown == 0 {
		c.io.Println("No notes found.")
		return nil
	}

	c.io.Println()
	c.io.Printf("Total: %d note(s)\n", shown)
	return nil
}

func newDeleteCommand(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note on the server and locally",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runDelete(ctx, args[0], yes)
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func (c *Cli) runDelete(ctx context.Context, id string, yes bool) error {
	note, err := c.notes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	if !yes {
		answer, err := c.io.ReadInput(fmt.Sprintf("Delete note %q? [y/N]: ", note.Title))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			c.io.Println("Deletion cancelled.")
			return nil
		}
	}

	if err := c.notes.Delete(ctx, id); err != nil {
		return err
	}

	c.io.Println("✓ Note deleted")
	return nil
}

func newCompactCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compact [id...]",
		Short: "Fold update logs into snapshots (all notes if no id is given)",
		RunE: opts.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.runCompact(ctx, args)
		}),
	}
}

func (c *Cli) runCompact(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		notes, err := c.notes.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}
		for _, note := range notes {
			ids = append(ids, note.ID)
		}
	}

	for _, id := range ids {
		if err := c.notes.Compact(ctx, id); err != nil {
			return fmt.Errorf("failed to compact note %s: %w", id, err)
		}
	}

	c.io.Printf("✓ Compacted %d note(s)\n", len(ids))
	return nil
}
