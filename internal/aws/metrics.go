package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsPublisher emits order lifecycle metrics to CloudWatch.
type MetricsPublisher struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsPublisher returns a MetricsPublisher under the given namespace.
func NewMetricsPublisher(cw CloudWatchAPI, namespace string) *MetricsPublisher {
	if namespace == "" {
		namespace = "FoodOrderflow"
	}
	return &MetricsPublisher{
		CloudWatch: cw,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// PutOrderConfirmed records a single confirmed order for a restaurant.
func (m *MetricsPublisher) PutOrderConfirmed(ctx context.Context, restaurantID string) error {
	return m.putCount(ctx, "OrdersConfirmed", restaurantID)
}

// PutPaymentFailed records a single failed payment for a restaurant.
func (m *MetricsPublisher) PutPaymentFailed(ctx context.Context, restaurantID string) error {
	return m.putCount(ctx, "PaymentsFailed", restaurantID)
}

func (m *MetricsPublisher) putCount(ctx context.Context, name, restaurantID string) error {
	now := m.nowFunc()
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Timestamp:  &now,
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
	}
	if restaurantID != "" {
		datum.Dimensions = []cwtypes.Dimension{
			{Name: sdkaws.String("Restaurant"), Value: sdkaws.String(restaurantID)},
		}
	}

	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		if code := apiErrorCode(err); code != "" {
			return fmt.Errorf("put metric data (%s): %w", code, err)
		}
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
