// Package grpc gRPC 处理器实现
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/wyfcoding/scenariosim/internal/scenario/application"
	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler gRPC 处理器
// 请求字段与 HTTP 接口的 JSON 一致，seed 以字符串传递
type Handler struct {
	UnimplementedScenarioServiceServer
	app *application.ScenarioApplicationService
}

// NewHandler 创建 gRPC 处理器实例
func NewHandler(app *application.ScenarioApplicationService) *Handler {
	return &Handler{app: app}
}

// RunScenario 运行场景模拟
func (h *Handler) RunScenario(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	var cmd application.RunScenarioCommand
	if err := decodeStruct(req, &cmd); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	slog.InfoContext(ctx, "gRPC RunScenario received", "topic_id", cmd.TopicID, "scenario_type", cmd.ScenarioType)

	dto, err := h.app.RunScenario(ctx, cmd)
	if err != nil {
		slog.ErrorContext(ctx, "gRPC RunScenario failed", "topic_id", cmd.TopicID, "error", err, "duration", time.Since(start))
		return nil, toStatus(err)
	}

	slog.InfoContext(ctx, "gRPC RunScenario successful", "run_id", dto.RunID, "duration", time.Since(start))
	return encodeStruct(dto)
}

// GetScenarioRun 查询场景运行结果
func (h *Handler) GetScenarioRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := req.GetFields()["run_id"].GetStringValue()
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	dto, err := h.app.GetScenarioRun(ctx, runID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(dto)
}

func decodeStruct(in *structpb.Struct, dst any) error {
	data, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfiguration):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrScenarioNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Errorf(codes.Internal, "scenario service: %v", err)
	}
}
