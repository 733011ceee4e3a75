package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/VamLeovr/rednote-mind-skills/internal/codec"
	"github.com/VamLeovr/rednote-mind-skills/internal/llm"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", ":50051", "gRPC listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "judge-server [--listen ADDR]",
	Short: "Serves the HTTP chat backend over gRPC for llm.backend=grpc clients.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lis, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", serveAddr, err)
		}

		srv := grpc.NewServer()
		codec.RegisterJudgeServer(srv, llm.NewClient(cfg.LLM.HTTP, logger))

		go func() {
			<-cmd.Context().Done()
			logger.Info("judge-server stopping")
			srv.GracefulStop()
		}()

		logger.Info("judge-server listening", "addr", lis.Addr().String(), "model", cfg.LLM.HTTP.Model)
		if err := srv.Serve(lis); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}
