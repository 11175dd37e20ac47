// Package domain 场景模拟服务的领域模型
package domain

import (
	crand "crypto/rand"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPaths = 10000 // 默认蒙特卡洛路径数
	DefaultSteps = 5     // 默认时间步数（年，dt = 1.0）

	// unitBaseline 冲击的参照点。固定为 1.0，与 BaseValue 无关
	unitBaseline = 1.0
)

// SimulationConfig 模拟引擎配置，构造后不可变
type SimulationConfig struct {
	Paths   int // 独立路径数
	Steps   int // 时间步数
	Workers int // 并行生成路径的 goroutine 数，0 表示 GOMAXPROCS
}

// DefaultSimulationConfig 返回 10000 路径、5 步的默认配置
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{Paths: DefaultPaths, Steps: DefaultSteps}
}

// Validate 校验配置
func (c SimulationConfig) Validate() error {
	if c.Paths <= 0 {
		return &ConfigurationError{Field: "paths", Value: c.Paths, Reason: "must be positive"}
	}
	if c.Steps <= 0 {
		return &ConfigurationError{Field: "steps", Value: c.Steps, Reason: "must be positive"}
	}
	if c.Workers < 0 {
		return &ConfigurationError{Field: "workers", Value: c.Workers, Reason: "must not be negative"}
	}
	return nil
}

// SimulationRequest 单次模拟输入
type SimulationRequest struct {
	BaseValue float64 // 归一化起始值，调用方通常传 1.0
	Mu        float64 // 年化漂移率
	Sigma     float64 // 年化波动率
	Exposure  float64 // 敞口乘数
	// Seed 可选。为空时由引擎的 SeedSource 生成
	Seed *uint64
}

// Validate 在采样前校验输入
func (r SimulationRequest) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"base_value", r.BaseValue},
		{"mu", r.Mu},
		{"sigma", r.Sigma},
		{"exposure", r.Exposure},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &DomainValidationError{Field: f.name, Value: f.value, Reason: "must be finite"}
		}
	}
	if r.Sigma < 0 {
		return &DomainValidationError{Field: "sigma", Value: r.Sigma, Reason: "volatility cannot be negative"}
	}
	if r.BaseValue <= 0 {
		return &DomainValidationError{Field: "base_value", Value: r.BaseValue, Reason: "must be positive"}
	}
	return nil
}

// RiskDeltas 风险敏感度
type RiskDeltas struct {
	AccelerationSensitivity float64 `json:"acceleration_sensitivity"`
	UncertaintyExposure     float64 `json:"uncertainty_exposure"`
}

// Map 以命名映射形式返回
func (d RiskDeltas) Map() map[string]float64 {
	return map[string]float64{
		"acceleration_sensitivity": d.AccelerationSensitivity,
		"uncertainty_exposure":     d.UncertaintyExposure,
	}
}

// SimulationResult 模拟输出
type SimulationResult struct {
	ImpactBands         [3]float64 `json:"impact_bands"`         // P10, P50, P90
	ConfidenceIntervals [2]float64 `json:"confidence_intervals"` // P2.5, P97.5
	RiskDeltas          RiskDeltas `json:"risk_deltas"`
	MeanImpact          float64    `json:"mean_impact"`
	StdImpact           float64    `json:"std_impact"`
	MaxDrawdown         float64    `json:"max_drawdown"`
	UpsidePotential     float64    `json:"upside_potential"`

	Paths int    `json:"paths"`
	Steps int    `json:"steps"`
	Seed  uint64 `json:"seed"`
}

// SeedSource 为未携带种子的请求提供种子
type SeedSource interface {
	Uint64() uint64
}

type lockedSeedSource struct {
	mu  sync.Mutex
	src *rand.ChaCha8
}

func newLockedSeedSource() *lockedSeedSource {
	var key [32]byte
	_, _ = crand.Read(key[:])
	return &lockedSeedSource{src: rand.NewChaCha8(key)}
}

func (s *lockedSeedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// Option 引擎可选项
type Option func(*Engine)

// WithSeedSource 注入种子来源
func WithSeedSource(src SeedSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.seeds = src
		}
	}
}

// WithLogger 注入日志
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine 基于几何布朗运动终值的蒙特卡洛场景模拟引擎。
// 只持有不可变配置，可被多个 goroutine 并发调用 Run。
type Engine struct {
	config SimulationConfig
	seeds  SeedSource
	logger *slog.Logger
}

// NewEngine 创建模拟引擎，配置非法时返回 ConfigurationError
func NewEngine(cfg SimulationConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Workers > cfg.Paths {
		cfg.Workers = cfg.Paths
	}

	e := &Engine{
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.seeds == nil {
		e.seeds = newLockedSeedSource()
	}
	return e, nil
}

// Config 返回引擎配置
func (e *Engine) Config() SimulationConfig {
	return e.config
}

// Run 执行一次模拟并汇总为分位带、置信区间与风险指标
func (e *Engine) Run(req SimulationRequest) (*SimulationResult, error) {
	impacts, seed, err := e.SampleImpacts(req)
	if err != nil {
		return nil, err
	}

	if req.Mu == 0 {
		e.logger.Warn("zero drift, acceleration sensitivity pinned to 0",
			"sigma", req.Sigma, "exposure", req.Exposure, "seed", seed)
	}

	res := Summarize(impacts, req.Mu)
	if math.IsInf(res.MeanImpact, 0) || math.IsInf(res.StdImpact, 0) || math.IsNaN(res.StdImpact) {
		return nil, overflowError(req, req.Mu, req.Sigma)
	}
	res.Paths = e.config.Paths
	res.Steps = e.config.Steps
	res.Seed = seed
	return res, nil
}

// SampleImpacts 生成每条路径的冲击值（未排序），并返回实际使用的种子。
// 相同种子下与 Run 使用完全相同的抽样。
func (e *Engine) SampleImpacts(req SimulationRequest) ([]float64, uint64, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	seed := e.seedFor(req)
	n := e.config.Paths
	steps := float64(e.config.Steps)

	// 终值的 Itô 修正漂移，一次性计算
	totalDrift := (req.Mu - 0.5*req.Sigma*req.Sigma) * steps
	// steps 个独立 N(0,1) 之和 ~ N(0, sqrt(steps))
	shockScale := math.Sqrt(steps)

	impacts := make([]float64, n)
	chunk := (n + e.config.Workers - 1) / e.config.Workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			pcg := rand.NewPCG(0, 0)
			r := rand.New(pcg)
			for i := lo; i < hi; i++ {
				// 每条路径只依赖 (seed, i)，结果与 worker 数无关
				pcg.Seed(seed, pathStream(uint64(i)))
				z := r.NormFloat64() * shockScale
				final := req.BaseValue * math.Exp(totalDrift+req.Sigma*z)
				impact := (final - unitBaseline) * req.Exposure
				if math.IsNaN(impact) || math.IsInf(impact, 0) {
					return overflowError(req, totalDrift, req.Sigma*z)
				}
				impacts[i] = impact
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return impacts, seed, nil
}

// overflowError 终值溢出 float64 时归因到占主导的项
func overflowError(req SimulationRequest, drift, shock float64) error {
	if math.Abs(shock) > math.Abs(drift) {
		return &DomainValidationError{Field: "sigma", Value: req.Sigma, Reason: "terminal value overflows float64"}
	}
	return &DomainValidationError{Field: "mu", Value: req.Mu, Reason: "terminal value overflows float64"}
}

func (e *Engine) seedFor(req SimulationRequest) uint64 {
	if req.Seed != nil {
		return *req.Seed
	}
	return e.seeds.Uint64()
}

// pathStream splitmix64 finalizer，把相邻路径号打散成不相关的 PCG 流
func pathStream(i uint64) uint64 {
	z := i + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
