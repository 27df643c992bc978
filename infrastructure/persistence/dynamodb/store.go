// Package dynamodb is the single-table entity store used by the Lambda deployment.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// maxTransactItems is the TransactWriteItems limit
const maxTransactItems = 100

// Client is the subset of the DynamoDB API the store uses; *dynamodb.Client satisfies it
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements ports.EntityStore on one DynamoDB table. Multi-item
// mutations go through TransactWriteItems with condition checks on every
// referenced record.
type Store struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

var _ ports.EntityStore = (*Store)(nil)

// NewStore creates a store on tableName
func NewStore(client Client, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Ping reads a key that never exists to check the table is reachable
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(vocabPK, "PING"),
	})
	if err != nil {
		return mapError("ping", err, nil)
	}
	return nil
}

// FetchAllKeywords returns the vocabulary in creation order
func (s *Store) FetchAllKeywords(ctx context.Context) ([]entities.Keyword, error) {
	const op = "fetch keywords"

	keyCond := expression.Key("PK").Equal(expression.Value(vocabPK)).
		And(expression.KeyBeginsWith(expression.Key("SK"), nameSK))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build keyword query")
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var items []ddbKeyword
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(op, err, nil)
		}
		var batch []ddbKeyword
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to unmarshal keywords")
		}
		items = append(items, batch...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt < items[j].CreatedAt
		}
		return items[i].Name < items[j].Name
	})

	out := make([]entities.Keyword, 0, len(items))
	for _, item := range items {
		out = append(out, entities.ReconstructKeyword(item.KeywordID, item.Name))
	}
	return out, nil
}

// ReadArticleKeywordIDs returns the article's keyword ids
func (s *Store) ReadArticleKeywordIDs(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	p, err := s.readPartition(ctx, "read article keywords", articleID)
	if err != nil {
		return nil, err
	}
	return p.targets(keywordSK), nil
}

// SetArticleKeywords replaces the article's keyword set in one transaction.
// New names are written with attribute_not_exists so a concurrent writer
// claiming the same name cancels the whole transaction.
func (s *Store) SetArticleKeywords(ctx context.Context, articleID valueobjects.ArticleID, connectIDs, createNames []string) ([]entities.Keyword, error) {
	const op = "set article keywords"

	pending := make(map[string]struct{}, len(createNames))
	for _, name := range createNames {
		if _, dup := pending[name]; dup {
			return nil, pkgerrors.NewConstraintViolationError(op, "keyword name "+name+" repeated")
		}
		pending[name] = struct{}{}
	}
	connectIDs = dedupe(connectIDs)

	p, err := s.readPartition(ctx, op, articleID)
	if err != nil {
		return nil, err
	}

	connected := make([]entities.Keyword, 0, len(connectIDs))
	for _, kid := range connectIDs {
		k, err := s.keywordByID(ctx, kid)
		if err != nil {
			return nil, err
		}
		connected = append(connected, k)
	}

	id := articleID.String()
	pk := articlePK(id)
	labels := newTxLabels(id)
	var tx []types.TransactWriteItem

	guard, err := s.conditionExists(pk, metaSK)
	if err != nil {
		return nil, err
	}
	tx = append(tx, guard)
	labels.guardArticle()

	keep := make(map[string]struct{}, len(connectIDs))
	for _, kid := range connectIDs {
		keep[kid] = struct{}{}
	}
	for _, old := range p.relations[keywordSK] {
		if _, ok := keep[old.Target]; ok {
			continue
		}
		tx = append(tx, s.deleteItem(pk, keywordSK+old.Target))
		labels.add("keyword association " + old.Target)
	}

	result := make([]entities.Keyword, 0, len(connectIDs)+len(createNames))
	position := 0
	for _, k := range connected {
		kid := k.ID.String()
		check, err := s.conditionExists(keywordPK(kid), metaSK)
		if err != nil {
			return nil, err
		}
		put, err := s.putItem(relation(pk, keywordSK, kid, k.Name, position), nil)
		if err != nil {
			return nil, err
		}
		tx = append(tx, check, put)
		labels.add("keyword " + kid + " does not exist")
		labels.add("keyword association " + kid)
		result = append(result, k)
		position++
	}

	now := time.Now().UTC()
	for i, name := range createNames {
		k, err := entities.NewKeyword(name)
		if err != nil {
			return nil, err
		}
		kid := k.ID.String()
		// offset keeps creation order stable within one transaction
		created := now.Add(time.Duration(i) * time.Microsecond).Format(sortableTime)

		claim, err := s.putItem(ddbKeyword{
			PK: vocabPK, SK: nameSK + name, EntityType: entityKeyword,
			KeywordID: kid, Name: name, CreatedAt: created,
		}, notExists())
		if err != nil {
			return nil, err
		}
		record, err := s.putItem(ddbKeyword{
			PK: keywordPK(kid), SK: metaSK, EntityType: entityKeyword,
			KeywordID: kid, Name: name, CreatedAt: created,
		}, nil)
		if err != nil {
			return nil, err
		}
		assoc, err := s.putItem(relation(pk, keywordSK, kid, name, position), nil)
		if err != nil {
			return nil, err
		}
		tx = append(tx, claim, record, assoc)
		labels.add("keyword name " + name + " already exists")
		labels.add("keyword " + kid)
		labels.add("keyword association " + kid)
		result = append(result, k)
		position++
	}

	if err := s.transact(ctx, op, tx, labels); err != nil {
		return nil, err
	}

	s.logger.Debug("article keywords replaced",
		zap.String("article_id", id),
		zap.Int("connected", len(connectIDs)),
		zap.Int("created", len(createNames)))
	return result, nil
}

// ReadArticlePreviousLinkTargets returns the recorded internal link targets
func (s *Store) ReadArticlePreviousLinkTargets(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	p, err := s.readPartition(ctx, "read internal links", articleID)
	if err != nil {
		return nil, err
	}
	return p.targets(internalSK), nil
}

// ApplyInternalLinkDelta writes the link items and their backlink mirrors in
// one transaction
func (s *Store) ApplyInternalLinkDelta(ctx context.Context, articleID valueobjects.ArticleID, connect, disconnect []string) error {
	const op = "apply internal link delta"

	p, err := s.readPartition(ctx, op, articleID)
	if err != nil {
		return err
	}
	connect = dedupe(connect)
	disconnect = dedupe(disconnect)
	if len(connect) == 0 && len(disconnect) == 0 {
		return nil
	}

	id := articleID.String()
	pk := articlePK(id)
	labels := newTxLabels(id)
	var tx []types.TransactWriteItem

	guard, err := s.conditionExists(pk, metaSK)
	if err != nil {
		return err
	}
	tx = append(tx, guard)
	labels.guardArticle()

	for _, target := range disconnect {
		tx = append(tx,
			s.deleteItem(pk, internalSK+target),
			s.deleteItem(articlePK(target), internalBack+id))
		labels.add("internal link " + target)
		labels.add("internal backlink " + target)
	}

	existing := make(map[string]struct{})
	for _, t := range p.targets(internalSK) {
		existing[t] = struct{}{}
	}
	position := p.nextPosition(internalSK)
	for _, target := range connect {
		if _, ok := existing[target]; ok {
			continue
		}
		if target != id {
			check, err := s.conditionExists(articlePK(target), metaSK)
			if err != nil {
				return err
			}
			tx = append(tx, check)
			labels.add("target article " + target + " does not exist")
		}
		link, err := s.putItem(relation(pk, internalSK, target, "", position), nil)
		if err != nil {
			return err
		}
		back, err := s.putItem(relation(articlePK(target), internalBack, id, "", 0), nil)
		if err != nil {
			return err
		}
		tx = append(tx, link, back)
		labels.add("internal link " + target)
		labels.add("internal backlink " + target)
		position++
	}

	return s.transact(ctx, op, tx, labels)
}

// SaveArticle writes the article record; association items are untouched
func (s *Store) SaveArticle(ctx context.Context, article *entities.Article) error {
	item, err := attributevalue.MarshalMap(toArticleItem(article))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal article")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return mapError("save article", err, nil)
	}
	return nil
}

// GetArticle returns an article record
func (s *Store) GetArticle(ctx context.Context, articleID valueobjects.ArticleID) (*entities.Article, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(articlePK(articleID.String()), metaSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError("get article", err, nil)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("article " + articleID.String())
	}

	var item ddbArticle
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal article")
	}
	return item.toEntity()
}

// AssignTag sets the article tag
func (s *Store) AssignTag(ctx context.Context, articleID valueobjects.ArticleID, tagID string) error {
	if tagID == "" {
		return pkgerrors.NewValidationError("tag id cannot be empty")
	}
	update := expression.Set(expression.Name("TagID"), expression.Value(tagID)).
		Set(expression.Name("UpdatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339Nano)))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build tag update")
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(articlePK(articleID.String()), metaSK),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewNotFoundError("article " + articleID.String())
		}
		return mapError("assign tag", err, nil)
	}
	return nil
}

// SetCuratedLinks replaces the curated links and their backlink mirrors
func (s *Store) SetCuratedLinks(ctx context.Context, articleID valueobjects.ArticleID, targets []string) error {
	const op = "set curated links"

	p, err := s.readPartition(ctx, op, articleID)
	if err != nil {
		return err
	}
	targets = dedupe(targets)

	id := articleID.String()
	pk := articlePK(id)
	labels := newTxLabels(id)
	var tx []types.TransactWriteItem

	guard, err := s.conditionExists(pk, metaSK)
	if err != nil {
		return err
	}
	tx = append(tx, guard)
	labels.guardArticle()

	keep := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		keep[t] = struct{}{}
	}
	for _, old := range p.targets(curatedSK) {
		if _, ok := keep[old]; ok {
			continue
		}
		tx = append(tx,
			s.deleteItem(pk, curatedSK+old),
			s.deleteItem(articlePK(old), curatedBack+id))
		labels.add("curated link " + old)
		labels.add("curated backlink " + old)
	}

	for i, target := range targets {
		if target != id {
			check, err := s.conditionExists(articlePK(target), metaSK)
			if err != nil {
				return err
			}
			tx = append(tx, check)
			labels.add("target article " + target + " does not exist")
		}
		link, err := s.putItem(relation(pk, curatedSK, target, "", i), nil)
		if err != nil {
			return err
		}
		back, err := s.putItem(relation(articlePK(target), curatedBack, id, "", 0), nil)
		if err != nil {
			return err
		}
		tx = append(tx, link, back)
		labels.add("curated link " + target)
		labels.add("curated backlink " + target)
	}

	return s.transact(ctx, op, tx, labels)
}

// GetArticleGraph reads the article partition in one query
func (s *Store) GetArticleGraph(ctx context.Context, articleID valueobjects.ArticleID) (*entities.ArticleGraph, error) {
	p, err := s.readPartition(ctx, "get article graph", articleID)
	if err != nil {
		return nil, err
	}
	return &entities.ArticleGraph{
		ArticleID:         p.article.ArticleID,
		Title:             p.article.Title,
		Status:            p.article.Status,
		TagID:             p.article.TagID,
		Details:           p.article.details(),
		Keywords:          p.keywords(),
		Links:             p.targets(curatedSK),
		Backlinks:         p.targets(curatedBack),
		InternalLinks:     p.targets(internalSK),
		InternalBacklinks: p.targets(internalBack),
	}, nil
}

// readPartition loads every item of the article partition; NotFound when
// the article record is missing
func (s *Store) readPartition(ctx context.Context, op string, articleID valueobjects.ArticleID) (*partition, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(articlePK(articleID.String())))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build partition query")
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	p := &partition{relations: make(map[string][]ddbRelation)}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(op, err, nil)
		}
		for _, raw := range page.Items {
			var sk string
			if err := attributevalue.Unmarshal(raw["SK"], &sk); err != nil {
				return nil, pkgerrors.Wrap(err, "failed to unmarshal sort key")
			}
			if sk == metaSK {
				var item ddbArticle
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return nil, pkgerrors.Wrap(err, "failed to unmarshal article")
				}
				p.article = &item
				continue
			}
			prefix := prefixOf(sk)
			if prefix == "" {
				continue
			}
			var rel ddbRelation
			if err := attributevalue.UnmarshalMap(raw, &rel); err != nil {
				return nil, pkgerrors.Wrap(err, "failed to unmarshal relation")
			}
			p.relations[prefix] = append(p.relations[prefix], rel)
		}
	}

	if p.article == nil {
		return nil, pkgerrors.NewNotFoundError("article " + articleID.String())
	}
	sortRelations(p)
	return p, nil
}

func (s *Store) keywordByID(ctx context.Context, kid string) (entities.Keyword, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(keywordPK(kid), metaSK),
	})
	if err != nil {
		return entities.Keyword{}, mapError("read keyword", err, nil)
	}
	if out.Item == nil {
		return entities.Keyword{}, pkgerrors.NewConstraintViolationError("set article keywords", "keyword "+kid+" does not exist")
	}
	var item ddbKeyword
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return entities.Keyword{}, pkgerrors.Wrap(err, "failed to unmarshal keyword")
	}
	return entities.ReconstructKeyword(item.KeywordID, item.Name), nil
}

func (s *Store) transact(ctx context.Context, op string, tx []types.TransactWriteItem, labels *txLabels) error {
	if len(tx) > maxTransactItems {
		return pkgerrors.NewConstraintViolationError(op, fmt.Sprintf("mutation needs %d items, limit is %d", len(tx), maxTransactItems))
	}
	s.logger.Debug("executing transaction", zap.String("operation", op), zap.Int("item_count", len(tx)))
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
	if err != nil {
		mapped := mapError(op, err, labels)
		s.logger.Warn("transaction failed", zap.String("operation", op), zap.Error(mapped))
		return mapped
	}
	return nil
}

func (s *Store) conditionExists(pk, sk string) (types.TransactWriteItem, error) {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return types.TransactWriteItem{}, pkgerrors.Wrap(err, "failed to build condition")
	}
	return types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName:                aws.String(s.tableName),
			Key:                      key(pk, sk),
			ConditionExpression:      expr.Condition(),
			ExpressionAttributeNames: expr.Names(),
		},
	}, nil
}

func (s *Store) putItem(item interface{}, cond *expression.ConditionBuilder) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, pkgerrors.Wrap(err, "failed to marshal item")
	}
	put := &types.Put{TableName: aws.String(s.tableName), Item: av}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return types.TransactWriteItem{}, pkgerrors.Wrap(err, "failed to build condition")
		}
		put.ConditionExpression = expr.Condition()
		put.ExpressionAttributeNames = expr.Names()
	}
	return types.TransactWriteItem{Put: put}, nil
}

func (s *Store) deleteItem(pk, sk string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{TableName: aws.String(s.tableName), Key: key(pk, sk)},
	}
}

func notExists() *expression.ConditionBuilder {
	cond := expression.AttributeNotExists(expression.Name("PK"))
	return &cond
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
