package authz

import (
	"context"
	"log/slog"
	"strings"

	openfga "github.com/openfga/go-sdk"
	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// readPageSize is the page size used when following read pagination.
const readPageSize int32 = 50

// Config holds connection settings for the authorization graph service.
type Config struct {
	APIURL       string
	StoreID      string
	ModelID      string
	TokenIssuer  string
	APIAudience  string
	ClientID     string
	ClientSecret string
}

// OpenFGAClient implements Client over the OpenFGA SDK.
type OpenFGAClient struct {
	fga    *client.OpenFgaClient
	logger *slog.Logger
}

// NewOpenFGAClient creates a client for the configured store and model.
func NewOpenFGAClient(cfg Config, logger *slog.Logger) (*OpenFGAClient, error) {
	clientCfg := &client.ClientConfiguration{
		ApiUrl:               cfg.APIURL,
		StoreId:              cfg.StoreID,
		AuthorizationModelId: cfg.ModelID,
	}

	if cfg.ClientID != "" {
		clientCfg.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodClientCredentials,
			Config: &credentials.Config{
				ClientCredentialsApiTokenIssuer: cfg.TokenIssuer,
				ClientCredentialsApiAudience:    cfg.APIAudience,
				ClientCredentialsClientId:       cfg.ClientID,
				ClientCredentialsClientSecret:   cfg.ClientSecret,
			},
		}
	}

	fga, err := client.NewSdkClient(clientCfg)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create authorization client")
	}

	return &OpenFGAClient{fga: fga, logger: logger}, nil
}

// Check reports whether the subject has the relation on the object.
func (c *OpenFGAClient) Check(ctx context.Context, tuple Tuple) (bool, error) {
	body := client.ClientCheckRequest{
		User:     tuple.User,
		Relation: tuple.Relation,
		Object:   tuple.Object,
	}

	resp, err := c.fga.Check(ctx).Body(body).Execute()
	if err != nil {
		return false, normalizeError(err, "authorization check failed")
	}

	return resp.GetAllowed(), nil
}

// WriteTuples writes the given relationship tuples in one batch. The write
// API rejects a tuple that already exists, which here means a previous
// delivery already applied this exact batch, so the rejection is treated as
// success to keep replays idempotent.
func (c *OpenFGAClient) WriteTuples(ctx context.Context, tuples []Tuple) error {
	if len(tuples) == 0 {
		return nil
	}

	writes := make([]client.ClientTupleKey, 0, len(tuples))
	for _, t := range tuples {
		writes = append(writes, client.ClientTupleKey{
			User:     t.User,
			Relation: t.Relation,
			Object:   t.Object,
		})
	}

	body := client.ClientWriteRequest{Writes: writes}
	if _, err := c.fga.Write(ctx).Body(body).Execute(); err != nil {
		if isDuplicateWrite(err) {
			if c.logger != nil {
				c.logger.Debug("relationship tuples already written, treating as success")
			}
			return nil
		}
		return normalizeError(err, "failed to write relationship tuples")
	}

	return nil
}

// isDuplicateWrite reports whether the write was rejected because a tuple in
// the batch already exists. The SDK surfaces the server message verbatim
// ("cannot write a tuple which already exists"), so match on the stable
// substring.
func isDuplicateWrite(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// DeleteTuples removes the given relationship tuples in one batch.
func (c *OpenFGAClient) DeleteTuples(ctx context.Context, tuples []Tuple) error {
	if len(tuples) == 0 {
		return nil
	}

	deletes := make([]client.ClientTupleKeyWithoutCondition, 0, len(tuples))
	for _, t := range tuples {
		deletes = append(deletes, client.ClientTupleKeyWithoutCondition{
			User:     t.User,
			Relation: t.Relation,
			Object:   t.Object,
		})
	}

	body := client.ClientWriteRequest{Deletes: deletes}
	if _, err := c.fga.Write(ctx).Body(body).Execute(); err != nil {
		return normalizeError(err, "failed to delete relationship tuples")
	}

	return nil
}

// ReadTuples returns all tuples matching the filter, following pagination until
// the continuation token runs out.
func (c *OpenFGAClient) ReadTuples(ctx context.Context, filter ReadFilter) ([]Tuple, error) {
	body := client.ClientReadRequest{}
	if filter.User != "" {
		body.User = openfga.PtrString(filter.User)
	}
	if filter.Relation != "" {
		body.Relation = openfga.PtrString(filter.Relation)
	}
	if filter.Object != "" {
		body.Object = openfga.PtrString(filter.Object)
	}

	var tuples []Tuple
	var continuationToken string

	for {
		opts := client.ClientReadOptions{PageSize: openfga.PtrInt32(readPageSize)}
		if continuationToken != "" {
			opts.ContinuationToken = openfga.PtrString(continuationToken)
		}

		resp, err := c.fga.Read(ctx).Body(body).Options(opts).Execute()
		if err != nil {
			return nil, normalizeError(err, "failed to read relationship tuples")
		}

		for _, t := range resp.GetTuples() {
			key := t.GetKey()
			tuples = append(tuples, Tuple{
				User:     key.GetUser(),
				Relation: key.GetRelation(),
				Object:   key.GetObject(),
			})
		}

		continuationToken = resp.GetContinuationToken()
		if continuationToken == "" {
			break
		}
	}

	return tuples, nil
}

// normalizeError converts SDK errors into the application's tagged error set.
// The graph service cannot reliably distinguish a deterministic rejection from
// an outage at this layer, so every failure is tagged transient and the retry
// budget decides when to stop (see the outbox worker).
func normalizeError(err error, message string) error {
	return apperrors.Wrap(apperrors.ErrTransient, message+": "+err.Error())
}
