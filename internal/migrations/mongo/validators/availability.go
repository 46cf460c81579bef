package validators

import "go.mongodb.org/mongo-driver/bson"

var AvailabilitySlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tenant_id",
			"resource_id",
			"duration_min",
			"step_min",
			"day",
			"version",
			"start_at",
			"end_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"tenant_id": bson.M{
				"bsonType": "string",
			},
			"resource_id": bson.M{
				"bsonType": "string",
			},
			"duration_min": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"step_min": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"day": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},
			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"start_at": bson.M{
				"bsonType": "date",
			},
			"end_at": bson.M{
				"bsonType": "date",
			},
			"computed_at": bson.M{
				"bsonType": "date",
			},
			"horizon_end": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var AvailabilityWindowValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"tenant_id",
			"resource_id",
			"day",
			"version",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"tenant_id": bson.M{
				"bsonType": "string",
			},
			"resource_id": bson.M{
				"bsonType": "string",
			},
			"day": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},
			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"specs": bson.M{
				"bsonType": "object",
			},
		},
	},
}
