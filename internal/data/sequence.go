package data

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"clinic-service/internal/constants"
	"clinic-service/internal/data/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// serialRule 单据号规则：前缀 + 日期段 + 固定宽度序号
// 卡号、充值票据号、消费票据号共用一套实现，仅参数不同。
type serialRule struct {
	scope      string // 计数器 scope 前缀
	prefix     string // 单据号前缀，例如 MK
	dateFormat string // 日期段格式
	width      int    // 序号位数
}

var (
	cardSerialRule = serialRule{
		scope:      constants.SeqScopeCard,
		prefix:     constants.SerialPrefixCard,
		dateFormat: constants.TimeFormatCompactMonth,
		width:      3,
	}
	rechargeSerialRule = serialRule{
		scope:      constants.SeqScopeRecharge,
		prefix:     constants.SerialPrefixRecharge,
		dateFormat: constants.TimeFormatCompactDate,
		width:      4,
	}
	consumptionSerialRule = serialRule{
		scope:      constants.SeqScopeConsumption,
		prefix:     constants.SerialPrefixConsumption,
		dateFormat: constants.TimeFormatCompactDate,
		width:      4,
	}
)

// nextSerial 在事务内分配下一个单据号。
// 计数器行按 scope 加行锁后递增；计数器首次使用时从既有单据的最大序号播种，
// 兼容计数表上线前的存量数据。并发创建同一 scope 的计数器行会触发唯一键冲突，
// 事务失败后由调用方重试。
func nextSerial(tx *gorm.DB, rule serialRule, now time.Time, seed seedFunc) (string, error) {
	period := now.Format(rule.dateFormat)
	scope := rule.scope + ":" + period
	serialPrefix := rule.prefix + period

	var counter model.SequenceCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ?", scope).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		maxSeq := 0
		if seed != nil {
			maxSeq, err = seed(tx, serialPrefix, rule.width)
			if err != nil {
				return "", err
			}
		}
		counter = model.SequenceCounter{Scope: scope, Seq: maxSeq + 1}
		if err := tx.Create(&counter).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	} else {
		counter.Seq++
		if err := tx.Model(&model.SequenceCounter{}).
			Where("scope = ?", scope).
			Update("seq", counter.Seq).Error; err != nil {
			return "", err
		}
	}

	return formatSerial(serialPrefix, counter.Seq, rule.width), nil
}

// seedFunc 返回指定前缀下既有单据的最大序号
type seedFunc func(tx *gorm.DB, serialPrefix string, width int) (int, error)

// maxSerialSeed 构造从业务表扫描最大单据号的 seedFunc
func maxSerialSeed(table, column string) seedFunc {
	return func(tx *gorm.DB, serialPrefix string, width int) (int, error) {
		var serials []string
		if err := tx.Table(table).
			Where(column+" LIKE ?", serialPrefix+"%").
			Order(column + " DESC").
			Limit(1).
			Pluck(column, &serials).Error; err != nil {
			return 0, err
		}
		if len(serials) == 0 {
			return 0, nil
		}
		return parseSerialSeq(serials[0], serialPrefix, width)
	}
}

// parseSerialSeq 解析单据号尾部的序号段
func parseSerialSeq(serial, serialPrefix string, width int) (int, error) {
	if len(serial) != len(serialPrefix)+width {
		return 0, fmt.Errorf("malformed serial %q for prefix %q", serial, serialPrefix)
	}
	seq, err := strconv.Atoi(serial[len(serialPrefix):])
	if err != nil {
		return 0, fmt.Errorf("malformed serial %q: %w", serial, err)
	}
	return seq, nil
}

// formatSerial 拼装单据号：前缀+日期段 + 补零序号
func formatSerial(serialPrefix string, seq, width int) string {
	return serialPrefix + fmt.Sprintf("%0*d", width, seq)
}
