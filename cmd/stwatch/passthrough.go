package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// forwardUnknownFlags rewrites argv so that flags stwatch does not define
// are handed to the handler, as if they had been given after "--". A bare
// word directly after an unknown flag is taken as that flag's value and
// forwarded with it. Commands other than the watcher are left untouched so
// cobra still reports their mistakes.
func forwardUnknownFlags(root *cobra.Command, argv []string) []string {
	target, _, err := root.Find(argv)
	if err != nil || (target != root && target.Name() != "watch") {
		return argv
	}

	var known, forward []string
	sawDash := false
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			sawDash = true
			forward = append(forward, argv[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			known = append(known, arg)
			continue
		}
		if flag, inline := lookupFlag(root, target, arg); flag != nil {
			known = append(known, arg)
			if !inline && flag.NoOptDefVal == "" && i+1 < len(argv) {
				i++
				known = append(known, argv[i])
			}
			continue
		}
		forward = append(forward, arg)
		if !strings.Contains(arg, "=") && i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "-") {
			i++
			forward = append(forward, argv[i])
		}
	}
	if !sawDash && len(forward) == 0 {
		return known
	}
	return append(append(known, "--"), forward...)
}

var helpFlag = &pflag.Flag{Name: "help", Shorthand: "h", NoOptDefVal: "true"}

// lookupFlag resolves arg against the flags visible to cmd. inline reports
// whether arg already carries its value ("--url=x", "-cpath").
func lookupFlag(root, cmd *cobra.Command, arg string) (*pflag.Flag, bool) {
	sets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags(), root.PersistentFlags()}
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		name, _, inline := strings.Cut(name, "=")
		if name == helpFlag.Name {
			return helpFlag, inline
		}
		for _, set := range sets {
			if f := set.Lookup(name); f != nil {
				return f, inline
			}
		}
		return nil, false
	}
	short := arg[1:2]
	inline := len(arg) > 2
	if short == helpFlag.Shorthand {
		return helpFlag, inline
	}
	for _, set := range sets {
		if f := set.ShorthandLookup(short); f != nil {
			return f, inline
		}
	}
	return nil, false
}
