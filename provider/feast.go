package provider

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/curakit/core"
)

// OnlineFeatureClient 是 Feast 在线特征读取接口，*feastsdk.GrpcClient 实现了它。
type OnlineFeatureClient interface {
	GetOnlineFeatures(ctx context.Context, req *feastsdk.OnlineFeaturesRequest) (*feastsdk.OnlineFeaturesResponse, error)
}

// FeastMetadata 是基于 Feast Feature Store 在线特征的 MetadataProvider。
//
// metadata key 即 Feast 特征引用（如 "sample_stats:uncertainty"），
// 每个样本作为一个实体行，实体列名由 EntityKey 指定（默认 "sample_id"）。
//
// 使用场景：
//   - 主动学习的不确定度、模型置信度等由特征平台统一产出的标量
type FeastMetadata struct {
	Client    OnlineFeatureClient
	Project   string
	EntityKey string

	// BatchSize 单次请求的实体行数上限（0 表示不分批）
	BatchSize int
}

// NewFeastMetadata 连接 Feast gRPC serving。
//
// 参数：
//   - host / port: Feast serving 地址，port 为 0 时使用 6565
//   - project: Feast 项目名
func NewFeastMetadata(host string, port int, project string) (*FeastMetadata, error) {
	if port == 0 {
		port = 6565 // 默认 gRPC 端口
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("create feast grpc client: %w", err)
	}
	return &FeastMetadata{Client: client, Project: project, EntityKey: "sample_id", BatchSize: 1000}, nil
}

func (p *FeastMetadata) Metadata(ctx context.Context, key string, sampleIDs []string) ([]any, error) {
	entityKey := p.EntityKey
	if entityKey == "" {
		entityKey = "sample_id"
	}
	batch := p.BatchSize
	if batch <= 0 {
		batch = len(sampleIDs)
	}

	out := make([]any, 0, len(sampleIDs))
	for lo := 0; lo < len(sampleIDs); lo += batch {
		hi := min(lo+batch, len(sampleIDs))

		rows := make([]feastsdk.Row, 0, hi-lo)
		for _, id := range sampleIDs[lo:hi] {
			rows = append(rows, feastsdk.Row{entityKey: feastsdk.StrVal(id)})
		}
		resp, err := p.Client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
			Features: []string{key},
			Entities: rows,
			Project:  p.Project,
		})
		if err != nil {
			return nil, core.NewDataError(core.ModuleProvider, "metadata key %q cannot be resolved from feast", key).WithCause(err)
		}

		got := resp.Rows()
		if len(got) != hi-lo {
			return nil, core.NewShapeError(core.ModuleProvider, "feast returned %d rows for %d samples", len(got), hi-lo)
		}
		for _, row := range got {
			out = append(out, valueOf(row[key]))
		}
	}
	return out, nil
}

// valueOf 把 Feast 的 Value 转为 Go 值；未设置的值返回 nil。
func valueOf(v *types.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.GetVal().(type) {
	case *types.Value_DoubleVal:
		return val.DoubleVal
	case *types.Value_FloatVal:
		return val.FloatVal
	case *types.Value_Int64Val:
		return val.Int64Val
	case *types.Value_Int32Val:
		return val.Int32Val
	case *types.Value_BoolVal:
		return val.BoolVal
	case *types.Value_StringVal:
		return val.StringVal
	case *types.Value_BytesVal:
		return val.BytesVal
	default:
		return nil
	}
}

var _ core.MetadataProvider = (*FeastMetadata)(nil)
