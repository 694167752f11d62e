package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"face-auth-backend/internal/faces"
)

func (c *cli) registeredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registered <user_id>",
		Short: "Report whether a user has a complete enrollment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := c.app.FaceService.IsRegistered(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func (c *cli) enrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <user_id> <pose>=<image_path>...",
		Short: "Enroll a user from image files, for example front=a.jpg left=b.jpg",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			images := map[string][]string{}
			for _, arg := range args[1:] {
				pose, path, ok := strings.Cut(arg, "=")
				if !ok || pose == "" || path == "" {
					return fmt.Errorf("invalid image argument %q, want <pose>=<path>", arg)
				}
				payload, err := readDataURL(path)
				if err != nil {
					return err
				}
				images[pose] = append(images[pose], payload)
			}

			res, err := c.app.FaceService.Enroll(cmd.Context(), args[0], images)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d images for %s\n", len(res.ImageURLs), res.UserID)
			return nil
		},
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <user_id> <image_path>",
		Short: "Verify a probe image against a user's enrollment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readDataURL(args[1])
			if err != nil {
				return err
			}
			res, err := c.app.FaceService.Verify(cmd.Context(), args[0], payload)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user=%s success=%v matches=%d processed=%d skipped=%d\n",
				res.UserID, res.Success, res.Matches, res.Processed, res.Skipped)
			if err != nil && errors.Is(err, faces.ErrUpstream) {
				return err
			}
			if err != nil {
				fmt.Fprintln(out, err)
			}
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <user_id>",
		Short: "List a user's stored enrollment images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := faces.NormalizeUserID(args[0])
			if err != nil {
				return err
			}
			refs, err := c.app.FaceService.Store.List(cmd.Context(), user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(refs) == 0 {
				fmt.Fprintf(out, "No images stored for %s.\n", user)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED\tLOCATION")
			for _, ref := range refs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", ref.Name, ref.Size, ref.LastModified.Local().Format("2006-01-02 15:04"), ref.Location)
			}
			return w.Flush()
		},
	}
}

func (c *cli) attemptsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "attempts <user_id>",
		Short: "Show recent enrollment and verification attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.app.FaceService.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No attempts recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "WHEN\tKIND\tSUCCESS\tMATCHES\tPROCESSED\tMESSAGE")
			for _, a := range list {
				fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\t%s\n",
					a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Kind, a.Success, a.Matches, a.Processed, a.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum attempts to show")
	return cmd
}

// readDataURL loads an image file as the data URL the service accepts.
func readDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return "data:" + mimetype.Detect(data).String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
