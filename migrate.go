package dynamoengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"
)

// deleteWait bounds how long MigrateDown waits for a single table to disappear.
const deleteWait = 10 * time.Minute

// backoff produces poll intervals growing by base times the attempt number, capped at
// limit.
type backoff struct {
	base    time.Duration
	limit   time.Duration
	current time.Duration
	attempt int
}

func (b *backoff) next() time.Duration {
	b.attempt++
	b.current += b.base * time.Duration(b.attempt)
	if b.limit > 0 && b.current > b.limit {
		b.current = b.limit
	}
	return b.current
}

// MigrateUp reconciles every compiled table with the store. Missing tables are created
// and existing tables gain any missing indexes. Tables are migrated concurrently and
// MigrateUp returns once all of them, including their indexes, are ACTIVE, or on the
// first error. Without a MigrationTimeout it waits as long as ctx allows.
func (e *Engine) MigrateUp(ctx context.Context) (err error) {
	defer func(start time.Time) { e.observe("migrate_up", start, err) }(time.Now())

	if e.config.MigrationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.MigrationTimeout)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, def := range e.compiled.Tables() {
		g.Go(func() error {
			return e.migrateTable(ctx, def)
		})
	}
	return g.Wait()
}

func (e *Engine) migrateTable(ctx context.Context, def TableDefinition) error {
	log := e.log.With().Str("table", def.TableName).Logger()

	out, err := e.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(def.TableName),
	})
	if err = classify("describe table", err); err != nil {
		if !errors.Is(err, ErrNonExistentTable) {
			return err
		}

		log.Info().Msg("creating table")
		action := "create"
		if _, err := e.client.CreateTable(ctx, def.CreateTableInput()); err != nil {
			err = classify("create table", err)
			if !errors.Is(err, ErrTableExists) {
				return err
			}
			log.Warn().Err(err).Msg("table already exists; waiting for it to become active")
			action = "race"
		}
		e.metrics.Migrated(action)
		return e.waitActive(ctx, def.TableName, e.config.CreatePollInterval)
	}

	delta, err := Diff(def, out.Table)
	if err != nil {
		return err
	}

	if delta == nil {
		e.metrics.Migrated("none")
		if tableActive(out.Table) {
			log.Debug().Msg("table is current")
			return nil
		}
		return e.waitActive(ctx, def.TableName, e.config.CreatePollInterval)
	}

	if !tableActive(out.Table) {
		if err := e.waitActive(ctx, def.TableName, e.config.UpdatePollInterval); err != nil {
			return err
		}
	}

	for _, input := range delta.Inputs() {
		index := aws.ToString(input.GlobalSecondaryIndexUpdates[0].Create.IndexName)
		log.Info().Str("index", index).Msg("creating index")

		if _, err := e.client.UpdateTable(ctx, input); err != nil {
			return classify("update table", err)
		}
		if err := e.waitActive(ctx, def.TableName, e.config.UpdatePollInterval); err != nil {
			return err
		}
	}
	e.metrics.Migrated("update")
	return nil
}

// waitActive polls the table until it and all of its indexes are ACTIVE. A table that
// is not found yet is polled again, since a concurrent creator may still be working.
func (e *Engine) waitActive(ctx context.Context, tableName string, base time.Duration) error {
	b := &backoff{base: base, limit: e.config.MaxPollInterval}
	for {
		out, err := e.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err = classify("describe table", err); err != nil && !errors.Is(err, ErrNonExistentTable) {
			return err
		}
		if err == nil && tableActive(out.Table) {
			return nil
		}

		e.metrics.Poll(tableName)
		wait := b.next()
		e.log.Debug().Str("table", tableName).Int("attempt", b.attempt).Dur("wait", wait).Msg("table not active")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &Error{Kind: KindTableNotActive, Op: "migrate", Message: fmt.Sprintf("table %s did not become active", tableName), Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// tableActive reports whether the table and every global secondary index are ACTIVE.
func tableActive(desc *types.TableDescription) bool {
	if desc == nil || desc.TableStatus != types.TableStatusActive {
		return false
	}
	for _, gsi := range desc.GlobalSecondaryIndexes {
		if gsi.IndexStatus != types.IndexStatusActive {
			return false
		}
	}
	return true
}

// MigrateDown deletes every compiled table and waits until they are gone. Tables that
// do not exist are skipped.
func (e *Engine) MigrateDown(ctx context.Context) (err error) {
	defer func(start time.Time) { e.observe("migrate_down", start, err) }(time.Now())

	if e.config.MigrationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.MigrationTimeout)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, def := range e.compiled.Tables() {
		g.Go(func() error {
			return e.deleteTable(ctx, def.TableName)
		})
	}
	return g.Wait()
}

func (e *Engine) deleteTable(ctx context.Context, tableName string) error {
	log := e.log.With().Str("table", tableName).Logger()

	_, err := e.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err = classify("delete table", err); err != nil {
		if errors.Is(err, ErrNonExistentTable) {
			log.Warn().Msg("table does not exist; skipping delete")
			return nil
		}
		return err
	}
	log.Info().Msg("deleting table")

	waiter := dynamodb.NewTableNotExistsWaiter(e.client, func(o *dynamodb.TableNotExistsWaiterOptions) {
		o.MinDelay = max(e.config.CreatePollInterval, time.Millisecond)
		o.MaxDelay = max(e.config.MaxPollInterval, o.MinDelay)
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, deleteWait); err != nil {
		return fmt.Errorf("failed waiting for table %s to be deleted: %w", tableName, err)
	}
	return nil
}

// Verify checks that every compiled table exists, is ACTIVE and has all of its indexes.
// All problems found are joined into the returned error.
func (e *Engine) Verify(ctx context.Context) error {
	var errs []error
	for _, def := range e.compiled.Tables() {
		out, err := e.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(def.TableName),
		})
		if err = classify("verify", err); err != nil {
			errs = append(errs, err)
			continue
		}

		delta, err := Diff(def, out.Table)
		switch {
		case err != nil:
			errs = append(errs, err)
		case delta != nil:
			errs = append(errs, newError(KindOperational, "verify", fmt.Sprintf("table %s is missing %d index(es); migration required", def.TableName, len(delta.Creates))))
		case !tableActive(out.Table):
			errs = append(errs, newError(KindTableNotActive, "verify", fmt.Sprintf("table %s is %s", def.TableName, out.Table.TableStatus)))
		}
	}
	return errors.Join(errs...)
}
