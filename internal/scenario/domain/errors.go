package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration 引擎配置非法（构造期错误）
	ErrInvalidConfiguration = errors.New("invalid simulation configuration")
	// ErrInvalidInput 单次模拟输入非法（调用期错误）
	ErrInvalidInput = errors.New("invalid simulation input")
	// ErrScenarioNotFound 场景运行记录不存在
	ErrScenarioNotFound = errors.New("scenario run not found")
)

// ConfigurationError 描述 SimulationConfig 中的非法字段
type ConfigurationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s=%d %s", ErrInvalidConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// DomainValidationError 描述 SimulationRequest 中违反领域约束的字段，
// 在任何采样发生前返回
type DomainValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *DomainValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidInput, e.Field, e.Value, e.Reason)
}

func (e *DomainValidationError) Unwrap() error { return ErrInvalidInput }
