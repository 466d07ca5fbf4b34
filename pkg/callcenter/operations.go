package callcenter

import (
	"context"
	"net/url"
	"sort"
)

type UserInfo struct {
	Name    string  `json:"name"`
	Package string  `json:"package"`
	Balance float64 `json:"balance"`
}

type Package struct {
	Name     string   `json:"-"`
	Price    float64  `json:"price"`
	Features []string `json:"features"`
}

type Bill struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
	Paid   bool    `json:"paid"`
}

type Usage struct {
	Calls  int     `json:"calls"`
	DataMB float64 `json:"data_mb"`
	SMS    int     `json:"sms"`
}

func (u Usage) DataGB() float64 {
	return u.DataMB / 1024
}

func (c *Client) GetUserInfo(ctx context.Context, customerID string) (UserInfo, error) {
	var info UserInfo
	_, err := c.get(ctx, "/getUserInfo/"+url.PathEscape(customerID), &info)
	return info, err
}

// GetAvailablePackages returns the catalog sorted by price, then name.
func (c *Client) GetAvailablePackages(ctx context.Context, customerID string) ([]Package, error) {
	var byName map[string]Package
	if _, err := c.get(ctx, "/getAvailablePackages/"+url.PathEscape(customerID), &byName); err != nil {
		return nil, err
	}

	packages := make([]Package, 0, len(byName))
	for name, p := range byName {
		p.Name = name
		packages = append(packages, p)
	}
	sort.Slice(packages, func(i, j int) bool {
		if packages[i].Price != packages[j].Price {
			return packages[i].Price < packages[j].Price
		}
		return packages[i].Name < packages[j].Name
	})
	return packages, nil
}

// ChangePackage returns the backend's confirmation message.
func (c *Client) ChangePackage(ctx context.Context, customerID, newPackage string) (string, error) {
	payload := map[string]string{
		"customer_id": customerID,
		"new_package": newPackage,
	}
	env, err := c.post(ctx, "/initiatePackageChange", payload, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) GetBillingInfo(ctx context.Context, customerID string) ([]Bill, error) {
	var data struct {
		Bills []Bill `json:"bills"`
	}
	if _, err := c.get(ctx, "/getBillingInfo/"+url.PathEscape(customerID), &data); err != nil {
		return nil, err
	}
	return data.Bills, nil
}

func (c *Client) GetUsageStats(ctx context.Context, customerID string) (Usage, error) {
	var usage Usage
	_, err := c.get(ctx, "/getUsageStats/"+url.PathEscape(customerID), &usage)
	return usage, err
}

func (c *Client) PayBill(ctx context.Context, customerID, month string, amount float64) (string, error) {
	payload := map[string]any{
		"customer_id": customerID,
		"month":       month,
		"amount":      amount,
	}
	env, err := c.post(ctx, "/payBill", payload, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/health", nil)
	return err
}
