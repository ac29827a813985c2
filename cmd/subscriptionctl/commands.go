package main

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gabrielajasnosz/subscriptions-contract/contracts"
	"github.com/gabrielajasnosz/subscriptions-contract/deploy"
	rpcsub "github.com/gabrielajasnosz/subscriptions-contract/rpc/subscription"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// send signs and sends transaction produced by f on behalf of the wallet
// account and waits for its successful execution.
func (a *app) send(cmd *cobra.Command, f func(*rpcsub.Contract, *actor.Actor) (util.Uint256, uint32, error)) error {
	h, err := a.contractHash()
	if err != nil {
		return err
	}

	c, act, err := a.newActor(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	txHash, vub, err := f(rpcsub.New(act, h), act)

	return a.await(act, txHash, vub, err)
}

func (a *app) buildCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "build <source-dir>",
		Short: "Compile contract into NEF and manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := contracts.Compile(args[0])
			if err != nil {
				return err
			}

			if out == "" {
				out = args[0]
			}

			if err := contracts.Write(out, c); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s contract is written to %s\n", c.Manifest.Name, out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default is the source directory)")

	return cmd
}

func (a *app) deployCommand() *cobra.Command {
	var (
		source, artifacts string
		owner, fee        string
		rejectZeroFee     bool
		update            bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy contract or update deployed one",
		Long: `Deploy Subscription contract from the wallet account. With --update the
contract at the configured address is updated if its version is older.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				ctr contracts.Contract
				err error
			)
			switch {
			case source != "" && artifacts != "":
				return fmt.Errorf("--source and --artifacts are mutually exclusive")
			case source != "":
				ctr, err = contracts.Compile(source)
			case artifacts != "":
				ctr, err = contracts.Read(os.DirFS(artifacts), ".")
			default:
				return fmt.Errorf("either --source or --artifacts is required")
			}
			if err != nil {
				return err
			}

			c, act, err := a.newActor(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			prm := deploy.Prm{
				Logger:        a.log,
				Blockchain:    c,
				Actor:         act,
				Contract:      ctr,
				Owner:         act.Sender(),
				RejectZeroFee: rejectZeroFee,
			}

			if owner != "" {
				prm.Owner, err = parseAccount(owner)
				if err != nil {
					return err
				}
			}

			if prm.Fee, err = parseGAS(fee); err != nil {
				return err
			}

			if update {
				if prm.Address, err = a.contractHash(); err != nil {
					return err
				}
			}

			addr, err := deploy.Deploy(cmd.Context(), prm)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Contract address: %s (%s)\n", address.Uint160ToString(addr), addr.StringLE())

			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&source, "source", "", "Contract source directory to compile")
	fs.StringVar(&artifacts, "artifacts", "", "Directory with compiled contract.nef and manifest.json")
	fs.StringVar(&owner, "owner", "", "Contract owner (default is the wallet account)")
	fs.StringVar(&fee, "fee", "1", "Subscription fee in GAS")
	fs.BoolVar(&rejectZeroFee, "reject-zero-fee", false, "Forbid zero subscription fee")
	fs.BoolVar(&update, "update", false, "Update contract at the configured address")

	return cmd
}

// paymentAmount returns explicitly requested amount or current contract fee.
func paymentAmount(c *rpcsub.Contract, amount string) (*big.Int, error) {
	if amount != "" {
		return parseGAS(amount)
	}

	fee, err := c.SubscriptionFee()
	if err != nil {
		return nil, fmt.Errorf("get subscription fee: %w", err)
	}

	return fee, nil
}

func (a *app) subscribeCommand() *cobra.Command {
	var email, firstName, lastName, amount string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe wallet account paying the fee in GAS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.send(cmd, func(c *rpcsub.Contract, _ *actor.Actor) (util.Uint256, uint32, error) {
				fee, err := paymentAmount(c, amount)
				if err != nil {
					return util.Uint256{}, 0, err
				}

				a.log.Info("subscribing...", zap.String("email", email), zap.String("amount", formatGAS(fee)))

				return c.Subscribe(email, firstName, lastName, fee)
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&email, "email", "", "Subscriber email")
	fs.StringVar(&firstName, "first-name", "", "Subscriber first name")
	fs.StringVar(&lastName, "last-name", "", "Subscriber last name")
	fs.StringVar(&amount, "amount", "", "Amount in GAS (default is the current fee)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")

	return cmd
}

func (a *app) payCommand() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay for the next subscription period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.send(cmd, func(c *rpcsub.Contract, _ *actor.Actor) (util.Uint256, uint32, error) {
				fee, err := paymentAmount(c, amount)
				if err != nil {
					return util.Uint256{}, 0, err
				}

				a.log.Info("paying...", zap.String("amount", formatGAS(fee)))

				return c.MakePayment(fee)
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount in GAS (default is the current fee)")

	return cmd
}

func (a *app) unsubscribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe",
		Short: "Cancel subscription of the wallet account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.send(cmd, func(c *rpcsub.Contract, act *actor.Actor) (util.Uint256, uint32, error) {
				return c.Unsubscribe(act.Sender())
			})
		},
	}
}

func (a *app) setFeeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-fee <amount>",
		Short: "Change subscription fee (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fee, err := parseGAS(args[0])
			if err != nil {
				return err
			}

			return a.send(cmd, func(c *rpcsub.Contract, _ *actor.Actor) (util.Uint256, uint32, error) {
				return c.UpdateSubscriptionFee(fee)
			})
		},
	}
}

func (a *app) withdrawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw",
		Short: "Transfer collected fees to the owner (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.send(cmd, func(c *rpcsub.Contract, _ *actor.Actor) (util.Uint256, uint32, error) {
				bal, err := c.Balance()
				if err != nil {
					return util.Uint256{}, 0, fmt.Errorf("get contract balance: %w", err)
				}

				a.log.Info("withdrawing...", zap.String("amount", formatGAS(bal)))

				return c.WithdrawFunds()
			})
		},
	}
}

func (a *app) destroyCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Terminate the contract and pay out collected fees (owner only)",
		Long: `Terminate the contract. All collected fees are transferred to the owner and
every further call fails. This can't be undone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Destroy the contract?")
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("aborted")
				}
			}

			return a.send(cmd, func(c *rpcsub.Contract, _ *actor.Actor) (util.Uint256, uint32, error) {
				return c.SelfDestructContract()
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Don't ask for confirmation")

	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [account]",
		Short: "Show contract state and subscription of the account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, r, err := a.newReader(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			w := cmd.OutOrStdout()

			destroyed, err := r.IsDestroyed()
			if err != nil {
				return fmt.Errorf("check contract state: %w", err)
			}
			if destroyed {
				fmt.Fprintln(w, "Contract is destroyed")
				return nil
			}

			owner, err := r.Owner()
			if err != nil {
				return fmt.Errorf("get owner: %w", err)
			}
			fee, err := r.SubscriptionFee()
			if err != nil {
				return fmt.Errorf("get subscription fee: %w", err)
			}
			bal, err := r.Balance()
			if err != nil {
				return fmt.Errorf("get balance: %w", err)
			}

			fmt.Fprintf(w, "Owner:   %s\n", address.Uint160ToString(owner))
			fmt.Fprintf(w, "Fee:     %s GAS\n", formatGAS(fee))
			fmt.Fprintf(w, "Balance: %s GAS\n", formatGAS(bal))

			if len(args) == 0 {
				return nil
			}

			acc, err := parseAccount(args[0])
			if err != nil {
				return err
			}

			s, err := r.CheckSubscription(acc)
			if err != nil {
				return fmt.Errorf("check subscription: %w", err)
			}

			fmt.Fprintln(w)
			printSubscriber(w, acc, s)

			return nil
		},
	}
}

func printSubscriber(w io.Writer, acc util.Uint160, s *rpcsub.Subscriber) {
	fmt.Fprintf(w, "Account:    %s\n", address.Uint160ToString(acc))
	if s.Email == "" {
		fmt.Fprintln(w, "Subscribed: never")
		return
	}
	fmt.Fprintf(w, "Subscribed: %t\n", s.IsSubscribed)
	fmt.Fprintf(w, "Due:        %s\n", formatDue(s.SubscriptionDue.Int64()))
	fmt.Fprintf(w, "Email:      %s\n", s.Email)
	fmt.Fprintf(w, "Name:       %s %s\n", s.FirstName, s.LastName)
}

func formatDue(due int64) string {
	return time.Unix(due, 0).UTC().Format(time.RFC3339)
}

func (a *app) listCommand() *cobra.Command {
	const batch = 100

	var byAccount bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all subscribers (owner only)",
		Long: `List all subscribers in the order of their first subscription.
With --by-account the contract storage is traversed instead, so the output
is ordered by account and includes account addresses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, acc, err := a.walletAccount()
			if err != nil {
				return err
			}

			signer := acc.ScriptHash()

			c, r, err := a.newReader(cmd.Context(), &signer)
			if err != nil {
				return err
			}
			defer c.Close()

			if !byAccount {
				subs, err := r.GetAllSubscribers()
				if err != nil {
					return fmt.Errorf("get subscribers: %w", err)
				}

				return printSubscribers(cmd.OutOrStdout(), subs)
			}

			session, iter, err := r.ListSubscribers()
			if err != nil {
				return fmt.Errorf("list subscribers: %w", err)
			}

			entries, err := r.TraverseSubscribers(session, iter, batch)
			if err != nil {
				return fmt.Errorf("traverse subscribers: %w", err)
			}

			return printSubscriberEntries(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().BoolVar(&byAccount, "by-account", false, "order by account and show account addresses")

	return cmd
}

func printSubscribers(w io.Writer, subs []*rpcsub.Subscriber) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tACTIVE\tDUE\tEMAIL\tNAME")
	for i, s := range subs {
		fmt.Fprintf(tw, "%d\t%t\t%s\t%s\t%s %s\n",
			i+1,
			s.IsSubscribed,
			formatDue(s.SubscriptionDue.Int64()),
			s.Email,
			s.FirstName, s.LastName)
	}

	return tw.Flush()
}

func printSubscriberEntries(w io.Writer, entries []*rpcsub.SubscriberEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tACTIVE\tDUE\tEMAIL\tNAME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s %s\n",
			address.Uint160ToString(e.Account),
			e.Subscriber.IsSubscribed,
			formatDue(e.Subscriber.SubscriptionDue.Int64()),
			e.Subscriber.Email,
			e.Subscriber.FirstName, e.Subscriber.LastName)
	}

	return tw.Flush()
}
