package models

import (
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
)

// InvalidateIntelligenceCache drops every dashboard read model cached for an
// organization. Called after a scoring run commits so the next dashboard
// fetch re-reads the new run's outputs from MySQL.
func InvalidateIntelligenceCache(organizationId string) error {
	if err := utils.RemoveRedisOrg[CurrentTriangleScore](organizationId); err != nil {
		return err
	}
	if err := utils.RemoveRedisList[TriangleScore](organizationId); err != nil {
		return err
	}
	if err := utils.RemoveRedisList[CompromisedInventoryItem](organizationId); err != nil {
		return err
	}
	return utils.RemoveRedisList[AlertFeedItem](organizationId)
}
