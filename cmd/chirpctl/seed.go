package main

import (
	"fmt"

	"chirper/internal/bootstrap"
	"chirper/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	opts := seed.Options{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users, tweets, likes and follows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, rt, err := loadRuntime(cmd.Context(), bootstrap.Options{Seed: &opts})
			if err != nil {
				return err
			}
			defer rt.Close()
			if !opts.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "demo accounts use the password %q\n", seed.DemoPassword)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.NumUsers, "users", 20, "number of users")
	f.IntVar(&opts.NumTweets, "tweets", 200, "number of tweets")
	f.IntVar(&opts.MaxLikes, "max-likes", 5, "upper bound of likes per tweet")
	f.IntVar(&opts.MaxFollows, "max-follows", 5, "upper bound of follows per user")
	f.IntVar(&opts.MaxDays, "max-days", 90, "spread tweet timestamps over this many days")
	f.IntVar(&opts.BatchSize, "batch-size", 100, "tweets per insert")
	f.BoolVar(&opts.ShouldClean, "clean", false, "delete existing users and tweets first")
	f.BoolVar(&opts.DryRun, "dry-run", false, "build the data without writing it")
	f.BoolVar(&opts.FastHash, "fast-hash", false, "hash the demo password with the minimum bcrypt cost")
	f.Int64Var(&opts.RandSeed, "rand-seed", 0, "make the run reproducible")
	return cmd
}
