package main

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/speechcoach/internal/deps"
	"github.com/spf13/cobra"
)

func doctorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check audio tools and the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			statuses := deps.CheckAll(deps.AudioTools)
			p := a.printer
			s := p.Styles()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, s.Header.Render("Audio tools"))
			for _, st := range statuses {
				mark := s.Muted.Render("missing")
				if st.Installed {
					mark = s.Success.Render("ok")
				} else if st.Required {
					mark = s.Error.Render("missing")
				}
				line := fmt.Sprintf("  %-12s %-8s %s", st.Name, mark, s.Subtle.Render(st.Purpose))
				if st.Version != "" {
					line += s.Muted.Render("  (" + st.Version + ")")
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			var problems []string
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				problems = append(problems, "missing "+strings.Join(missing, ", "))
			}
			if !deps.HasPlayer(statuses) {
				p.Warning("No audio player found: install pipewire, pulseaudio-utils or ffmpeg for playback.")
			}

			h, err := a.client.Health(cmd.Context())
			if err != nil {
				p.Error(err)
				problems = append(problems, "backend unreachable at "+a.client.BaseURL())
			} else {
				p.Health(h)
				if !h.Healthy() {
					problems = append(problems, "backend is "+h.Status)
				}
			}

			if len(problems) > 0 {
				return fmt.Errorf("doctor found problems: %s", strings.Join(problems, "; "))
			}
			p.Success("Everything looks good.")
			return nil
		},
	}
}
