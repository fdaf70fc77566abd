package main

import (
	"github.com/lodthe/sparkify-dwh/internal/app"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func main() {
	ctx, cancel, env := app.Bootstrap("create-report-table")
	defer cancel()

	tableName := env.Config.Report.DynamoDBTable
	if tableName == "" {
		env.Logger.Fatal().Msg("report.dynamodb_table is not set")
	}

	client := dynamodb.NewFromConfig(env.AWS)

	param := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("Id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("Id"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
		TableName:   aws.String(tableName),
		TableClass:  types.TableClassStandardInfrequentAccess,
	}

	_, err := client.CreateTable(ctx, param)
	if err != nil {
		env.Logger.Fatal().Err(err).Msg("table creation failed")
	}

	env.Logger.Info().Str("table_name", tableName).Msg("created successfully")
}
