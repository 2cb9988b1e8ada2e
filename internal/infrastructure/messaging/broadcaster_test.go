package messaging

import (
	"strings"
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBroadcaster(t *testing.T) *SSEBroadcaster {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		JSONFormat:      true,
	})
	require.NoError(t, err)

	return &SSEBroadcaster{
		operationClients: make(map[string][]chan string),
		logger:           logger,
	}
}

func drain(ch chan string) []string {
	var messages []string
	for {
		select {
		case msg := <-ch:
			messages = append(messages, msg)
		default:
			return messages
		}
	}
}

func TestBroadcastProgressReachesOperationAndFirehose(t *testing.T) {
	b := testBroadcaster(t)

	opClient := b.AddClient("del_1")
	firehose := b.AddClient("")
	other := b.AddClient("del_2")

	b.BroadcastProgress(deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseProcessing, Percentage: 40})

	opMessages := drain(opClient)
	require.Len(t, opMessages, 1)
	assert.True(t, strings.HasPrefix(opMessages[0], "event: deletion_progress\n"))
	assert.Contains(t, opMessages[0], `"percentage":40`)

	assert.Len(t, drain(firehose), 1)
	assert.Empty(t, drain(other))
}

func TestFirehoseReceivesExactlyOnce(t *testing.T) {
	b := testBroadcaster(t)
	firehose := b.AddClient("")

	b.BroadcastOperation(deletion.DeletionOperation{ID: "del_1", Status: deletion.StatusCompleted})

	assert.Len(t, drain(firehose), 1)
}

func TestRemoveClientStopsDelivery(t *testing.T) {
	b := testBroadcaster(t)

	ch := b.AddClient("del_1")
	assert.Equal(t, 1, b.ConnectionCount("del_1"))

	b.RemoveClient(ch, "del_1")
	assert.Zero(t, b.ConnectionCount("del_1"))

	b.BroadcastProgress(deletion.DeletionProgress{OperationID: "del_1", Percentage: 10})
	assert.Empty(t, drain(ch))
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	b := testBroadcaster(t)
	ch := b.AddClient("del_1")

	// Fill the buffered channel past capacity; extra messages are dropped,
	// never blocking the sender.
	for i := 0; i < 25; i++ {
		b.BroadcastProgress(deletion.DeletionProgress{OperationID: "del_1", Percentage: i})
	}

	assert.Len(t, drain(ch), 10)
}
