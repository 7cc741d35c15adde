package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/digkill/SweetheartDash/internal/controller"
	"github.com/digkill/SweetheartDash/internal/render"
)

func (a *app) newController() *controller.Controller {
	sink := render.NewTerminal(os.Stdout)
	opts := controller.Options{
		PollInterval:      a.cfg.PollInterval,
		ChatPollInterval:  a.cfg.ChatPollInterval,
		ReplyPollInterval: a.cfg.ReplyPollInterval,
		ReplyMaxAttempts:  a.cfg.ReplyMaxAttempts,
		TypingGraceDelay:  a.cfg.TypingGraceDelay,
	}
	return controller.New(a.api, sink, nil, opts, a.log)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Watch account, influencer, gallery, and chat state live",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			ctrl := a.newController()
			if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newCreateCommand() *cobra.Command {
	var name, bio, vibe string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create your influencer and wait for her first image",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			if name == "" {
				name = promptLine("Name: ")
			}
			if bio == "" {
				bio = promptLine("Bio: ")
			}
			if vibe == "" {
				vibe = promptLine("Vibe: ")
			}

			ctrl := a.newController()
			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			defer ctrl.StopAll()

			if snapshot := ctrl.Snapshot(); snapshot.Influencer != nil {
				return fmt.Errorf("influencer %q already exists", snapshot.Influencer.Name)
			}

			if err := ctrl.CreateInfluencer(ctx, name, bio, vibe); err != nil {
				return err
			}

			select {
			case <-ctrl.ReadinessDone():
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "influencer name")
	cmd.Flags().StringVar(&bio, "bio", "", "short biography")
	cmd.Flags().StringVar(&vibe, "vibe", "", "overall vibe")
	return cmd
}

func newGenerateCommand() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Queue one more image and wait for it to land in the gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			if prompt == "" {
				prompt = promptLine("Prompt: ")
			}

			ctrl := a.newController()
			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			defer ctrl.StopAll()

			if err := ctrl.GenerateImage(ctx, prompt); err != nil {
				return err
			}

			select {
			case <-ctrl.GenerationDone():
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "image prompt")
	return cmd
}

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with your influencer",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			ctrl := a.newController()
			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			defer ctrl.StopAll()

			if snapshot := ctrl.Snapshot(); snapshot.ChatID == "" {
				fmt.Println("Chat is not unlocked yet — create your influencer first.")
				return nil
			}

			fmt.Println("Type a message and press Enter. Ctrl-C to leave.")
			for ctx.Err() == nil {
				text := promptLine("> ")
				if text == "" {
					continue
				}
				if err := ctrl.SendMessage(ctx, text); err != nil {
					if errors.Is(err, context.Canceled) {
						break
					}
					// Direct-action failures surface and the prompt stays
					// usable.
					fmt.Fprintln(os.Stderr, "send failed:", err)
				}
			}
			return nil
		},
	}
}

func newUpgradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Start a pro upgrade checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			url, err := a.api.Upgrade(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Open this checkout link in your browser:")
			fmt.Println(url)
			return nil
		},
	}
}

func newBillingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "billing",
		Short: "Open the billing portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			url, err := a.api.BillingPortal(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Open this billing link in your browser:")
			fmt.Println(url)
			return nil
		},
	}
}
