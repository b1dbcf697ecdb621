package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"key",
			"venue",
			"room",
			"date",
			"start",
			"end",
			"pax",
			"owner_id",
			"owner_name",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"key": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"venue": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"room": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  `^(1[0-2]|[1-9]):[0-5]\d (AM|PM)$`,
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  `^(1[0-2]|[1-9]):[0-5]\d (AM|PM)$`,
			},

			"pax": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"owner_id": bson.M{
				"bsonType": "string",
			},

			"owner_name": bson.M{
				"bsonType": "string",
			},

			"members": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "name"},
					"properties": bson.M{
						"id":   bson.M{"bsonType": "string"},
						"name": bson.M{"bsonType": "string"},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
