package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/cloudwego/eino/components/embedding"
)

// MockEmbedder 确定性嵌入：同一文本得到同一单位向量，离线与测试用
type MockEmbedder struct {
	Dim int
}

func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	result := make([][]float64, len(texts))
	for i, text := range texts {
		result[i] = deterministicVector(text, m.Dim)
	}
	return result, nil
}

func deterministicVector(text string, dim int) []float64 {
	vec := make([]float64, dim)
	seed := sha256.Sum256([]byte(text))
	var norm float64
	for j := 0; j < dim; j++ {
		// 每 4 字节取一个分量，种子耗尽时再散列一轮
		if (j*4)%len(seed) == 0 && j > 0 {
			seed = sha256.Sum256(seed[:])
		}
		off := (j * 4) % len(seed)
		u := binary.BigEndian.Uint32(seed[off : off+4])
		v := float64(u)/float64(math.MaxUint32) - 0.5
		vec[j] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for j := range vec {
		vec[j] /= norm
	}
	return vec
}

// 确保实现接口
var _ embedding.Embedder = (*MockEmbedder)(nil)
