package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/vinli0921/product-recommender-system/core"
)

// EntityTower 是用户侧的实体塔：一个小型前馈网络，把用户特征向量
// 映射为与物品 Embedding 同空间的用户 Embedding。
//
// 核心思想（双塔召回的用户塔）：
//   - 离线：物品塔产出 Item Embedding 并灌入向量索引
//   - 在线：用户塔对冷启动用户实时推理，得到 User Embedding
//   - 检索：User Embedding 在物品索引上做近邻搜索
//
// 工程特征：
//   - 推理是纯 CPU 向量运算，无外部调用
//   - 实例一旦加载完成即不可变，可被并发 Encode
type EntityTower struct {
	config *EncoderConfig
	layers []denseLayer
}

// denseLayer 是一个全连接层：y = W·x + b。
type denseLayer struct {
	name     string
	weight   [][]float64 // [outDim][inDim]
	bias     []float64   // [outDim]
	outDim   int
	inDim    int
	applyAct bool // 输出层不做激活
}

// stateDict 是权重产物（user-encoder-{version}.json）的序列化结构，
// 由训练管道按层顺序导出。
type stateDict struct {
	Layers []struct {
		Name   string      `json:"name"`
		Weight [][]float64 `json:"weight"`
		Bias   []float64   `json:"bias"`
	} `json:"layers"`
}

// NewEntityTower 根据配置和权重产物实例化用户塔。
//
// 权重按层校验形状：
//   - 首层输入维度必须等于 config.InputDim()
//   - 相邻层的输出/输入维度必须衔接
//   - 任何形状/格式不匹配返回 CORRUPT_ARTIFACT（对该版本致命）
func NewEntityTower(cfg *EncoderConfig, weights []byte) (*EntityTower, error) {
	if cfg == nil {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			"model: encoder config is nil")
	}

	var sd stateDict
	if err := json.Unmarshal(weights, &sd); err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeCorruptArtifact,
			"model: parse encoder weights", err)
	}
	if len(sd.Layers) == 0 {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeCorruptArtifact,
			"model: encoder weights contain no layers")
	}

	layers := make([]denseLayer, 0, len(sd.Layers))
	expectIn := cfg.InputDim()
	for i, raw := range sd.Layers {
		outDim := len(raw.Weight)
		if outDim == 0 {
			return nil, corrupt(fmt.Sprintf("layer %q has empty weight matrix", raw.Name))
		}
		inDim := len(raw.Weight[0])
		for _, rowVec := range raw.Weight {
			if len(rowVec) != inDim {
				return nil, corrupt(fmt.Sprintf("layer %q has ragged weight matrix", raw.Name))
			}
		}
		if inDim != expectIn {
			return nil, corrupt(fmt.Sprintf("layer %q expects input dim %d, got %d",
				raw.Name, expectIn, inDim))
		}
		if len(raw.Bias) != outDim {
			return nil, corrupt(fmt.Sprintf("layer %q bias dim %d mismatches output dim %d",
				raw.Name, len(raw.Bias), outDim))
		}

		layers = append(layers, denseLayer{
			name:     raw.Name,
			weight:   raw.Weight,
			bias:     raw.Bias,
			outDim:   outDim,
			inDim:    inDim,
			applyAct: i < len(sd.Layers)-1,
		})
		expectIn = outDim
	}

	return &EntityTower{config: cfg, layers: layers}, nil
}

// Config 返回模型的配置（只读）。
func (m *EntityTower) Config() *EncoderConfig {
	return m.config
}

// EmbeddingDim 返回输出 Embedding 的维度。
func (m *EntityTower) EmbeddingDim() int {
	return m.layers[len(m.layers)-1].outDim
}

// Encode 前向推理：输入特征向量，输出 L2 归一化的用户 Embedding。
// 输入维度必须等于 config.InputDim()。
func (m *EntityTower) Encode(input []float64) ([]float64, error) {
	if len(input) != m.config.InputDim() {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: input dim %d, expected %d", len(input), m.config.InputDim()))
	}

	x := input
	for _, layer := range m.layers {
		y := make([]float64, layer.outDim)
		for i := 0; i < layer.outDim; i++ {
			sum := layer.bias[i]
			row := layer.weight[i]
			for j, v := range x {
				sum += row[j] * v
			}
			if layer.applyAct && sum < 0 {
				sum = 0 // ReLU
			}
			y[i] = sum
		}
		x = y
	}

	return l2Normalize(x), nil
}

// l2Normalize 对向量做 L2 归一化（零向量原样返回）。
func l2Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func corrupt(msg string) error {
	return core.NewDomainError(core.ModuleEncoder, core.ErrorCodeCorruptArtifact, "model: "+msg)
}
