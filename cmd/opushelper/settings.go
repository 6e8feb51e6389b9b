package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"opushelper/internal/status"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
)

var boolSettings = map[string]bool{
	"likeEnabled":     true,
	"favoriteEnabled": true,
	"imageEnabled":    true,
}

func newSettingsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "查看或修改偏好",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "以 JSON 输出当前偏好",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := flags.openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := b.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set KEY=VALUE...",
		Short:   "修改部分偏好字段",
		Example: "  opushelper settings set likeEnabled=false imageAction=open-tab",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseAssignments(args)
			if err != nil {
				return err
			}
			b, closeFn, err := flags.openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			return finish(cmd.OutOrStdout(), status.Saved(b.SaveSettingsRaw(cmd.Context(), raw)))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "恢复默认偏好",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := flags.openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = b.ResetSettings(cmd.Context())
			return finish(cmd.OutOrStdout(), status.Saved(err))
		},
	})

	return cmd
}

// parseAssignments 将 key=value 列表转为 JSON 对象
func parseAssignments(args []string) (json.RawMessage, error) {
	raw := "{}"
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q, want KEY=VALUE", arg)
		}
		var value any
		switch {
		case boolSettings[k]:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			value = b
		case k == "imageAction":
			value = v
		default:
			return nil, fmt.Errorf("unknown setting %q", k)
		}
		var err error
		if raw, err = sjson.Set(raw, k, value); err != nil {
			return nil, err
		}
	}
	return json.RawMessage(raw), nil
}
