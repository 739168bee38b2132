package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/query"
)

// DynamoConfig holds configuration for the DynamoDB gateway.
type DynamoConfig struct {
	// TablePrefix is prepended to collection names to form table names.
	TablePrefix string
}

// Dynamo is the production Gateway, one DynamoDB table per collection
// keyed by the "id" attribute. Conditional writes distinguish a missing
// document from a transport failure.
type Dynamo struct {
	client *dynamodb.Client
	config DynamoConfig
}

// NewDynamo creates a DynamoDB gateway.
func NewDynamo(client *dynamodb.Client, config DynamoConfig) *Dynamo {
	return &Dynamo{client: client, config: config}
}

func (d *Dynamo) table(collection string) *string {
	return aws.String(d.config.TablePrefix + collection)
}

func docKey(id item.ID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id.String()},
	}
}

// List scans the collection with the query's filter and projection
// translated to DynamoDB expressions. Scans cannot be ordered server
// side, so the sort is applied to the fetched set.
func (d *Dynamo) List(ctx context.Context, collection string, q query.Query) ([]map[string]any, error) {
	input := &dynamodb.ScanInput{TableName: d.table(collection)}

	expr, hasExpr, err := buildExpression(q)
	if err != nil {
		return nil, fmt.Errorf("build scan expression: %w", err)
	}
	if hasExpr {
		input.FilterExpression = expr.Filter()
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	docs := []map[string]any{}
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var doc map[string]any
			if err := attributevalue.UnmarshalMap(raw, &doc); err != nil {
				return nil, fmt.Errorf("unmarshal document: %w", err)
			}
			docs = append(docs, doc)
		}
	}

	q.Sort(docs)
	return docs, nil
}

// Get retrieves a document by id, returning ErrNotFound if missing.
func (d *Dynamo) Get(ctx context.Context, collection string, id item.ID) (map[string]any, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table(collection),
		Key:       docKey(id),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var doc map[string]any
	if err := attributevalue.UnmarshalMap(result.Item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// Create inserts the document under a freshly generated id.
func (d *Dynamo) Create(ctx context.Context, collection string, fields item.Fields) (item.ID, error) {
	id := item.NewID()

	av, err := attributevalue.MarshalMap(map[string]any(fields))
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	av["id"] = &types.AttributeValueMemberS{Value: id.String()}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           d.table(collection),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Replace overwrites the client-owned fields of an existing document.
// The full validator always supplies the complete field set, so the SET
// update leaves only id and createdAt from the prior document.
func (d *Dynamo) Replace(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	return d.update(ctx, collection, id, fields)
}

// Patch merges only the supplied fields into an existing document.
func (d *Dynamo) Patch(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	return d.update(ctx, collection, id, fields)
}

func (d *Dynamo) update(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	// Sorted keys keep the generated expression stable for a given
	// field set.
	names := make([]string, 0, len(fields))
	for k := range fields {
		if k == "id" || k == "createdAt" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)

	var setClauses []string
	exprNames := map[string]string{}
	exprValues := map[string]types.AttributeValue{}
	for i, k := range names {
		av, err := attributevalue.Marshal(fields[k])
		if err != nil {
			return fmt.Errorf("marshal %s: %w", k, err)
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 d.table(collection),
		Key:                       docKey(id),
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes a document, reporting ErrNotFound when nothing matched.
func (d *Dynamo) Delete(ctx context.Context, collection string, id item.ID) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           d.table(collection),
		Key:                 docKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// buildExpression translates q into a DynamoDB expression. The bool
// result reports whether any filter or projection was requested; an
// empty expression builder refuses to build.
func buildExpression(q query.Query) (expression.Expression, bool, error) {
	builder := expression.NewBuilder()
	has := false

	predicates := q.Predicates()
	if len(predicates) > 0 {
		var cond expression.ConditionBuilder
		for i, p := range predicates {
			var term expression.ConditionBuilder
			switch p.Op {
			case query.OpEq:
				term = expression.Name(p.Field).Equal(expression.Value(p.Value))
			case query.OpGTE:
				term = expression.Name(p.Field).GreaterThanEqual(expression.Value(p.Value))
			default:
				return expression.Expression{}, false, fmt.Errorf("unsupported predicate op %d", p.Op)
			}
			if i == 0 {
				cond = term
			} else {
				cond = cond.And(term)
			}
		}
		builder = builder.WithFilter(cond)
		has = true
	}

	if fields := q.Projection(); len(fields) > 0 {
		names := make([]expression.NameBuilder, len(fields))
		for i, f := range fields {
			names[i] = expression.Name(f)
		}
		builder = builder.WithProjection(expression.NamesList(names[0], names[1:]...))
		has = true
	}

	if !has {
		return expression.Expression{}, false, nil
	}
	expr, err := builder.Build()
	return expr, true, err
}
