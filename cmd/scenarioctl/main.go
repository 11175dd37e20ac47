// scenarioctl 场景模拟服务命令行客户端，通过 gRPC 调用 scenario 服务
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	scenariogrpc "github.com/wyfcoding/scenariosim/internal/scenario/interfaces/grpc"
	"github.com/wyfcoding/scenariosim/pkg/grpcclient"
	"github.com/wyfcoding/scenariosim/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// dialFunc 创建到 scenario 服务的连接
type dialFunc func(cfg grpcclient.ClientConfig) (*grpc.ClientConn, error)

type globalOptions struct {
	addr    string
	timeout int
	retries int
}

type runOptions struct {
	topicID      string
	scenarioType string
	exposureKey  string
	exposure     float64
	mu           float64
	sigma        float64
	seed         uint64
}

func main() {
	if err := newRootCmd(func(cfg grpcclient.ClientConfig) (*grpc.ClientConn, error) {
		return grpcclient.NewClient(cfg)
	}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(dial dialFunc) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:          "scenarioctl",
		Short:        "Command line client for the scenario simulation service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.addr, "addr", "localhost:50051", "scenario gRPC address")
	root.PersistentFlags().IntVar(&g.timeout, "timeout", 30, "request timeout in seconds")
	root.PersistentFlags().IntVar(&g.retries, "retries", 2, "retries on Unavailable/ResourceExhausted")

	root.AddCommand(newRunCmd(g, dial), newGetCmd(g, dial))
	return root
}

func newRunCmd(g *globalOptions, dial dialFunc) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Monte Carlo scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildRunRequest(o, cmd.Flags().Changed("mu"), cmd.Flags().Changed("sigma"), cmd.Flags().Changed("seed"))
			if err != nil {
				return err
			}
			return call(cmd, g, dial, func(ctx context.Context, c *scenariogrpc.ScenarioServiceClient) (*structpb.Struct, error) {
				return c.RunScenario(ctx, req)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.topicID, "topic", "", "topic id")
	f.StringVar(&o.scenarioType, "type", "", "scenario type, e.g. bull, bear, baseline")
	f.StringVar(&o.exposureKey, "exposure-key", "DeepTech", "asset allocation key carrying the exposure")
	f.Float64Var(&o.exposure, "exposure", 0.1, "portfolio exposure fraction")
	f.Float64Var(&o.mu, "mu", 0, "drift override")
	f.Float64Var(&o.sigma, "sigma", 0, "volatility override")
	f.Uint64Var(&o.seed, "seed", 0, "RNG seed for a reproducible run")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newGetCmd(g *globalOptions, dial dialFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <run_id>",
		Short: "Fetch a stored scenario run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := structpb.NewStruct(map[string]any{"run_id": args[0]})
			if err != nil {
				return err
			}
			return call(cmd, g, dial, func(ctx context.Context, c *scenariogrpc.ScenarioServiceClient) (*structpb.Struct, error) {
				return c.GetScenarioRun(ctx, req)
			})
		},
	}
}

// buildRunRequest 组装 RunScenario 请求，未显式设置的覆盖项不下发
func buildRunRequest(o *runOptions, withMu, withSigma, withSeed bool) (*structpb.Struct, error) {
	fields := map[string]any{
		"topic_id":      o.topicID,
		"scenario_type": o.scenarioType,
		"portfolio_data": map[string]any{
			"asset_allocation": map[string]any{o.exposureKey: o.exposure},
		},
	}
	if withMu {
		fields["mu"] = o.mu
	}
	if withSigma {
		fields["sigma"] = o.sigma
	}
	if withSeed {
		fields["seed"] = strconv.FormatUint(o.seed, 10)
	}
	return structpb.NewStruct(fields)
}

func call(cmd *cobra.Command, g *globalOptions, dial dialFunc, fn func(context.Context, *scenariogrpc.ScenarioServiceClient) (*structpb.Struct, error)) error {
	conn, err := dial(grpcclient.ClientConfig{
		Target:         g.addr,
		ConnTimeout:    5,
		RequestTimeout: g.timeout,
		MaxRetries:     g.retries,
		RetryDelay:     200,
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", g.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(g.timeout+5)*time.Second)
	defer cancel()
	ctx = logger.ContextWithIDs(ctx, "", "", uuid.NewString())

	out, err := fn(ctx, scenariogrpc.NewScenarioServiceClient(conn))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, s *structpb.Struct) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
