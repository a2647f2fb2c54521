package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxleyb/timesage/internal/output"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	cmd.AddCommand(projectsAddCmd())
	cmd.AddCommand(projectsListCmd())
	cmd.AddCommand(projectsArchiveCmd())

	return cmd
}

func projectsAddCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			project, err := store.CreateProject(cmd.Context(), userID, args[0])
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}

			fmt.Printf("Created project %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID owning the project")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func projectsListCmd() *cobra.Command {
	var userID string
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			projects, err := store.GetProjectsForUser(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			table := output.NewTable("ID", "Name", "Archived", "Created")
			shown := 0
			for _, p := range projects {
				if p.IsArchived && !includeArchived {
					continue
				}
				archived := "no"
				if p.IsArchived {
					archived = "yes"
				}
				table.AddRow(p.ID, p.Name, archived, p.CreatedAt.Format("2006-01-02"))
				shown++
			}

			if shown == 0 {
				fmt.Println("No projects found.")
				return nil
			}
			table.Print()

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived projects")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func projectsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <project-id>",
		Short: "Archive a project",
		Long: `Archives a project so it no longer receives suggestions. Its
categorization rules are kept for auditability; the prune command removes
rules whose project has been deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.store.SetProjectArchived(cmd.Context(), args[0], true); err != nil {
				return fmt.Errorf("failed to archive project: %w", err)
			}

			count := eng.feedback.HandleProjectArchival(cmd.Context(), args[0])
			fmt.Printf("Archived project %s (%d rules retained)\n", args[0], count)
			return nil
		},
	}
}
