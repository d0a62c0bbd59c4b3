package config

import (
	"os"
	"strconv"
)

const DATABASE_TYPE = "INVOFLOW_DATABASE_TYPE"
const DATABASE_URL = "INVOFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "INVOFLOW_DATABASE_SQLLITE_FILE_NAME"
const ENGINE_SERVER_WEB_PORT = "INVOFLOW_ENGINE_SERVER_WEB_PORT"
const ENGINE_CHECK_DB_INTERVAL = "INVOFLOW_ENGINE_CHECK_DB_INTERVAL"
const ENGINE_STUCK_EXECUTIONS_INTERVAL = "INVOFLOW_ENGINE_STUCK_EXECUTIONS_INTERVAL"
const ENGINE_STUCK_EXECUTIONS_REPAIR_AFTER_MINUTES = "INVOFLOW_ENGINE_STUCK_EXECUTIONS_REPAIR_AFTER_MINUTES"
const ENGINE_BATCH_SIZE = "INVOFLOW_ENGINE_BATCH_SIZE"         //number of executions to pull from the database at a time
const ENGINE_EXECUTOR_GROUP = "INVOFLOW_ENGINE_EXECUTOR_GROUP" //the group this scheduler instance processes executions from
const ENGINE_EXECUTOR_SIZE = "INVOFLOW_ENGINE_EXECUTOR_SIZE"   //number of workers ie the parallel nature of the executions
const ENGINE_MAX_RETRY_COUNT = "INVOFLOW_ENGINE_MAX_RETRY_COUNT"
const ENGINE_RETRY_INTERVAL_MIN = "INVOFLOW_ENGINE_RETRY_INTERVAL_MIN"
const ENGINE_RETRY_INTERVAL_MAX = "INVOFLOW_ENGINE_RETRY_INTERVAL_MAX"
const EXECUTOR_NAME = "INVOFLOW_EXECUTOR_NAME"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == ENGINE_CHECK_DB_INTERVAL {
		return "3s"
	}
	if settingKey == ENGINE_STUCK_EXECUTIONS_INTERVAL {
		return "60s"
	}
	if settingKey == ENGINE_BATCH_SIZE {
		return "5"
	}
	if settingKey == ENGINE_STUCK_EXECUTIONS_REPAIR_AFTER_MINUTES {
		return "5"
	}
	if settingKey == ENGINE_EXECUTOR_SIZE {
		return "5"
	}
	if settingKey == ENGINE_EXECUTOR_GROUP {
		return "default"
	}
	if settingKey == ENGINE_MAX_RETRY_COUNT {
		return "3"
	}
	if settingKey == ENGINE_RETRY_INTERVAL_MIN {
		return "1m"
	}
	if settingKey == ENGINE_RETRY_INTERVAL_MAX {
		return "1h"
	}
	if settingKey == ENGINE_SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./invoflow.db"
	}
	return ""
}
