package repository

// CertificateListFilter 查询证书列表的过滤条件
type CertificateListFilter struct {
	Page     int
	PageSize int
	Search   string // 学号大小写不敏感的子串过滤
}
