package cli

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		args []string
		want Command
		err  bool
	}{
		{args: nil, want: Command{Name: CmdServe}},
		{args: []string{"serve"}, want: Command{Name: CmdServe}},
		{args: []string{"migrate", "up"}, want: Command{Name: CmdMigrate, Args: []string{"up"}}},
		{args: []string{"migrate", "sideways"}, err: true},
		{args: []string{"migrate"}, err: true},
		{args: []string{"useradd", "a@b.c", "password1"}, want: Command{Name: CmdUserAdd, Args: []string{"a@b.c", "password1"}}},
		{args: []string{"useradd", "nobody"}, err: true},
		{args: []string{"jobs", "stats"}, want: Command{Name: CmdJobs, Args: []string{"stats"}}},
		{args: []string{"jobs", "trigger", "collections:due_scan", "2024-05-01"}, want: Command{Name: CmdJobs, Args: []string{"trigger", "collections:due_scan", "2024-05-01"}}},
		{args: []string{"jobs", "trigger", "reports:warmup"}, want: Command{Name: CmdJobs, Args: []string{"trigger", "reports:warmup"}}},
		{args: []string{"jobs", "trigger", "reports:warmup", "extra"}, err: true},
		{args: []string{"jobs", "trigger", "mail:send"}, err: true},
		{args: []string{"dance"}, err: true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.args)
		if tc.err {
			assert.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err, "%v", tc.args)
		assert.Equal(t, tc.want, got)
	}
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: "127.0.0.1:0"})
	defer func() { _ = c.Close() }()

	_, err := c.Trigger(context.Background(), "mail:send", "")
	assert.Error(t, err)
}
