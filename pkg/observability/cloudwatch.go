package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const cloudWatchTimeout = 2 * time.Second

// CloudWatchAPI is the subset of the CloudWatch client used here
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics sends query bus metrics to CloudWatch. Failures are logged and dropped.
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
}

// NewCloudWatchMetrics creates a new CloudWatch metrics sink
func NewCloudWatchMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// Increment records a count of one
func (m *CloudWatchMetrics) Increment(metric, label string) {
	m.put(metric, label, 1, types.StandardUnitCount)
}

// StartTimer records the elapsed milliseconds when stopped
func (m *CloudWatchMetrics) StartTimer(metric, label string) Timer {
	start := time.Now()
	return timerFunc(func() {
		m.put(metric, label, float64(time.Since(start).Milliseconds()), types.StandardUnitMilliseconds)
	})
}

func (m *CloudWatchMetrics) put(metric, label string, value float64, unit types.StandardUnit) {
	if m.client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cloudWatchTimeout)
	defer cancel()

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metric),
				Dimensions: []types.Dimension{
					{
						Name:  aws.String("Operation"),
						Value: aws.String(label),
					},
				},
				Value:     aws.Float64(value),
				Unit:      unit,
				Timestamp: aws.Time(time.Now()),
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Warn("Failed to send metrics",
			zap.String("metric", metric),
			zap.Error(err),
		)
	}
}

type timerFunc func()

func (f timerFunc) Stop() { f() }
