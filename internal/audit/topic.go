package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// TopicSpec sizes the audit topic when it has to be created.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// EnsureTopic creates the audit topic if the cluster does not have it yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, spec TopicSpec) error {
	adm := kadm.NewClient(client)
	_, err := adm.CreateTopic(ctx, spec.Partitions, spec.ReplicationFactor, nil, spec.Name)
	if err == nil || errors.Is(err, kerr.TopicAlreadyExists) {
		return nil
	}
	return fmt.Errorf("ensure audit topic %s: %w", spec.Name, err)
}

// BrokerCheck reports whether any broker answers a metadata request.
func BrokerCheck(client *kgo.Client) func(context.Context) error {
	adm := kadm.NewClient(client)
	return func(ctx context.Context) error {
		brokers, err := adm.ListBrokers(ctx)
		if err != nil {
			return err
		}
		if len(brokers) == 0 {
			return errors.New("no kafka brokers")
		}
		return nil
	}
}
