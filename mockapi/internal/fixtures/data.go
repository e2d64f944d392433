package fixtures

import "github.com/storepulse/storepulse/pkg/types"

var recordedStores = []types.Store{
	{
		ID:       "store_0001",
		Name:     "Five Guys West",
		Chain:    "fiveguys",
		Slug:     "fiveguys_west_doordash",
		Platform: "doordash",
		Status:   "online",
		Location: &types.Location{
			Address: "3987 West St", City: "San Jose", State: "CA", Zip: "90692",
			Lat: 34.4323957137731, Lng: -118.978058754816,
		},
		Metrics:   types.StoreProfile{AvgOrderTime: 27, AvgOrderValue: 29, DailyOrders: 196, SuccessRate: 98},
		CreatedAt: "2024-11-15T08:24:30.230Z",
	},
	{
		ID:       "store_0002",
		Name:     "Five Guys West",
		Chain:    "fiveguys",
		Slug:     "fiveguys_west_ubereats",
		Platform: "ubereats",
		Status:   "online",
		Location: &types.Location{
			Address: "4414 West St", City: "San Jose", State: "CA", Zip: "90480",
			Lat: 34.9301525703654, Lng: -118.445746888491,
		},
		Metrics:   types.StoreProfile{AvgOrderTime: 14, AvgOrderValue: 40, DailyOrders: 106, SuccessRate: 92},
		CreatedAt: "2025-08-13T08:26:06.897Z",
	},
	{
		ID:       "store_0003",
		Name:     "Five Guys West",
		Chain:    "fiveguys",
		Slug:     "fiveguys_west_grubhub",
		Platform: "grubhub",
		Status:   "online",
		Location: &types.Location{
			Address: "5422 West St", City: "San Jose", State: "CA", Zip: "90953",
			Lat: 34.6473709025863, Lng: -117.60436128914,
		},
		Metrics:   types.StoreProfile{AvgOrderTime: 14, AvgOrderValue: 40, DailyOrders: 79, SuccessRate: 86},
		CreatedAt: "2025-08-04T16:37:50.305Z",
	},
}

var recordedOrders = map[string][]Record{
	"store_0001": {
		{
			"id": "order_1765037743362", "store_id": "store_0001", "store_name": "Five Guys West",
			"platform": "doordash", "status": "failed", "total_amount": "39.92", "items_count": 5,
			"created_at": "2025-12-06T16:15:43.362Z", "processing_time_seconds": 1944,
			"has_error": true, "error_type": "processing_error",
		},
		{
			"id": "order_1765037077695_2", "store_id": "store_0001", "store_name": "Five Guys West",
			"platform": "doordash", "platform_order_id": "doordash_qhtj8wx9s", "status": "completed",
			"total_amount": 59, "platform_fee": 10, "tax": 3, "tip": 5, "items_count": 3,
			"customer": map[string]any{"id": "cust_5439", "rating": "4.1"},
			"delivery": map[string]any{"estimated_time": 30, "actual_time": 26, "driver_wait_time": 3},
			"has_error": false, "error_type": nil,
			"created_at": "2025-12-06T16:04:37.695Z", "completed_at": "2025-12-06T16:04:37.695Z",
			"processing_time_seconds": 1259,
		},
		{
			"id": "order_1765037077695_1", "store_id": "store_0001", "store_name": "Five Guys West",
			"platform": "doordash", "platform_order_id": "doordash_udpjmcuhk", "status": "completed",
			"total_amount": 18, "platform_fee": 8, "tax": 5, "tip": 4, "items_count": 3,
			"customer": map[string]any{"id": "cust_4576", "rating": "3.2"},
			"delivery": map[string]any{"estimated_time": 30, "actual_time": 29, "driver_wait_time": 4},
			"has_error": false, "error_type": nil,
			"created_at": "2025-12-06T16:04:37.695Z", "completed_at": "2025-12-06T16:04:37.695Z",
			"processing_time_seconds": 1769,
		},
		{
			"id": "order_1765037077695_0", "store_id": "store_0001", "store_name": "Five Guys West",
			"platform": "doordash", "platform_order_id": "doordash_7q140zavg", "status": "failed",
			"total_amount": 32, "platform_fee": 6, "tax": 3, "tip": 4, "items_count": 2,
			"customer": map[string]any{"id": "cust_9367", "rating": "4.3"},
			"delivery": map[string]any{"estimated_time": 30, "actual_time": nil, "driver_wait_time": 7},
			"has_error": true, "error_type": "processing_error",
			"created_at": "2025-12-06T16:04:37.695Z", "completed_at": nil,
			"processing_time_seconds": 858,
		},
		{
			"id": "order_1765036161092", "store_id": "store_0001", "store_name": "Five Guys West",
			"platform": "doordash", "status": "cancelled", "total_amount": "43.76", "items_count": 1,
			"created_at": "2025-12-06T15:49:21.092Z", "processing_time_seconds": 672,
			"has_error": true, "error_type": "processing_error",
		},
	},
	"store_0002": {
		{
			"id": "order_2_1", "store_id": "store_0002", "store_name": "Five Guys West",
			"platform": "ubereats", "status": "completed", "total_amount": 45.50, "items_count": 3,
			"created_at": "2025-12-06T16:00:00.000Z", "processing_time_seconds": 1200,
			"has_error": false,
		},
	},
	"store_0003": {
		{
			"id": "order_3_1", "store_id": "store_0003", "store_name": "Five Guys West",
			"platform": "grubhub", "status": "completed", "total_amount": 52.75, "items_count": 4,
			"created_at": "2025-12-06T15:45:00.000Z", "processing_time_seconds": 1500,
			"has_error": false,
		},
	},
}
