package models

import (
	"fmt"

	"gorm.io/gorm"
)

// CascadeEdge 父子软删除关系
type CascadeEdge struct {
	Child      Cascadable // 子模型（指针零值）
	ForeignKey string     // 子表中指向父级的外键列
}

// Cascadable 声明软删除时需要一并删除的子模型
type Cascadable interface {
	CascadeEdges() []CascadeEdge
}

// CascadeEdges 分类下的商品随分类删除
func (Category) CascadeEdges() []CascadeEdge {
	return []CascadeEdge{{Child: &Product{}, ForeignKey: "category_id"}}
}

// CascadeEdges 商品下的购物车项随商品删除
func (Product) CascadeEdges() []CascadeEdge {
	return []CascadeEdge{{Child: &CartItem{}, ForeignKey: "product_id"}}
}

// CascadeEdges 购物车项没有子模型
func (CartItem) CascadeEdges() []CascadeEdge {
	return nil
}

// CascadeEdges 活动规则随活动删除
func (PromotionalEvent) CascadeEdges() []CascadeEdge {
	return []CascadeEdge{{Child: &PromotionRule{}, ForeignKey: "event_id"}}
}

// CascadeEdges 规则没有子模型
func (PromotionRule) CascadeEdges() []CascadeEdge {
	return nil
}

// SoftDeleteCascade 按声明的关系自底向上软删除 root 及其后代，应在事务中调用
func SoftDeleteCascade(tx *gorm.DB, root Cascadable, ids ...uint) error {
	if tx == nil {
		return fmt.Errorf("soft delete cascade: nil db")
	}
	return softDeleteCascade(tx, root, ids, 0)
}

const maxCascadeDepth = 8

func softDeleteCascade(tx *gorm.DB, node Cascadable, ids []uint, depth int) error {
	if len(ids) == 0 {
		return nil
	}
	if depth > maxCascadeDepth {
		return fmt.Errorf("soft delete cascade: depth exceeds %d", maxCascadeDepth)
	}
	for _, edge := range node.CascadeEdges() {
		var childIDs []uint
		if err := tx.Model(edge.Child).Where(edge.ForeignKey+" IN ?", ids).Pluck("id", &childIDs).Error; err != nil {
			return err
		}
		if err := softDeleteCascade(tx, edge.Child, childIDs, depth+1); err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", ids).Delete(node).Error
}
