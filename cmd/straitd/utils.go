package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const timeout = 10 * time.Second

type serviceInfo struct {
	Version         string   `json:"version"`
	HomeDomain      string   `json:"home_domain"`
	RemoteDomains   []string `json:"remote_domains"`
	SupportedAssets []string `json:"supported_assets"`
	BaseAsset       string   `json:"base_asset"`
	CounterAsset    string   `json:"counter_asset"`
	TransferTimeout int64    `json:"transfer_timeout"`
	PendingCount    int64    `json:"pending_count"`
}

func (i serviceInfo) String() string {
	return fmt.Sprintf(
		"version: %s\nhome domain: %s\nremote domains: %s\nsupported assets: %s\n"+
			"pair: %s/%s\ntransfer timeout: %ds\npending transfers: %d",
		i.Version, i.HomeDomain, strings.Join(i.RemoteDomains, ", "),
		strings.Join(i.SupportedAssets, ", "), i.BaseAsset, i.CounterAsset,
		i.TransferTimeout, i.PendingCount,
	)
}

type quote struct {
	Domain        string `json:"domain"`
	FromAsset     string `json:"from_asset"`
	ToAsset       string `json:"to_asset"`
	AmountIn      uint64 `json:"amount_in"`
	AmountOut     uint64 `json:"amount_out"`
	Rate          uint64 `json:"rate"`
	Precision     uint64 `json:"precision"`
	EffectiveRate string `json:"effective_rate"`
}

func (q quote) String() string {
	return fmt.Sprintf(
		"%d %s -> %d %s on %s (rate %s)",
		q.AmountIn, q.FromAsset, q.AmountOut, q.ToAsset, q.Domain, q.EffectiveRate,
	)
}

type reserves struct {
	Domain         string `json:"domain"`
	Base           string `json:"base"`
	Counter        string `json:"counter"`
	ForwardRate    uint64 `json:"forward_rate"`
	ReverseRate    uint64 `json:"reverse_rate"`
	EffectiveRate  string `json:"effective_rate"`
	ReserveBase    uint64 `json:"reserve_base"`
	ReserveCounter uint64 `json:"reserve_counter"`
}

func (r reserves) String() string {
	return fmt.Sprintf(
		"pair: %s/%s\nrate: %s\nreserve %s: %d\nreserve %s: %d",
		r.Base, r.Counter, r.EffectiveRate,
		r.Base, r.ReserveBase, r.Counter, r.ReserveCounter,
	)
}

type mapping struct {
	HomeAsset    string `json:"home_asset"`
	RemoteDomain string `json:"remote_domain"`
	RemoteAsset  string `json:"remote_asset"`
	DisplayName  string `json:"display_name"`
	CreatedAt    int64  `json:"created_at"`
}

func (m mapping) String() string {
	s := fmt.Sprintf("%s -> %s on %s", m.HomeAsset, m.RemoteAsset, m.RemoteDomain)
	if m.DisplayName != "" {
		s += fmt.Sprintf(" (%s)", m.DisplayName)
	}
	return s
}

type mappingList struct {
	Mappings []mapping `json:"mappings"`
}

func (l mappingList) String() string {
	if len(l.Mappings) == 0 {
		return "no mappings found"
	}
	list := make([]string, 0, len(l.Mappings))
	for _, m := range l.Mappings {
		list = append(list, m.String())
	}
	return strings.Join(list, "\n")
}

type registeredMapping struct {
	HomeAsset    string `json:"home_asset"`
	RemoteDomain string `json:"remote_domain"`
	RemoteAsset  string `json:"remote_asset"`
}

func (m registeredMapping) String() string {
	return fmt.Sprintf(
		"registered %s on %s for %s", m.RemoteAsset, m.RemoteDomain, m.HomeAsset,
	)
}

type supply struct {
	Domain        string `json:"domain"`
	Asset         string `json:"asset"`
	HomeAsset     string `json:"home_asset"`
	WrappedSupply uint64 `json:"wrapped_supply"`
	Escrowed      uint64 `json:"escrowed"`
	Halted        bool   `json:"halted"`
}

func (s supply) String() string {
	return fmt.Sprintf(
		"asset: %s on %s (wraps %s)\nwrapped supply: %d\nescrowed: %d\nhalted: %t",
		s.Asset, s.Domain, s.HomeAsset, s.WrappedSupply, s.Escrowed, s.Halted,
	)
}

type wrappedBalance struct {
	Domain  string `json:"domain"`
	Asset   string `json:"asset"`
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}

func (b wrappedBalance) String() string {
	return fmt.Sprintf("%s holds %d %s on %s", b.Holder, b.Balance, b.Asset, b.Domain)
}

type swapReceipt struct {
	RequestId string `json:"request_id"`
}

func (r swapReceipt) String() string {
	return fmt.Sprintf("request id: %s", r.RequestId)
}

type transfer struct {
	RequestId         string `json:"request_id"`
	OriginDomain      string `json:"origin_domain"`
	Trader            string `json:"trader"`
	FromAsset         string `json:"from_asset"`
	ToAsset           string `json:"to_asset"`
	AmountIn          uint64 `json:"amount_in"`
	AmountOut         uint64 `json:"amount_out"`
	State             string `json:"state"`
	FailureReason     string `json:"failure_reason"`
	CompensatedAmount uint64 `json:"compensated_amount"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

func (t transfer) String() string {
	lines := []string{
		fmt.Sprintf("request id: %s", t.RequestId),
		fmt.Sprintf("origin domain: %s", t.OriginDomain),
		fmt.Sprintf("trader: %s", t.Trader),
		fmt.Sprintf("swap: %d %s -> %s", t.AmountIn, t.FromAsset, t.ToAsset),
		fmt.Sprintf("state: %s", t.State),
	}
	if t.AmountOut > 0 {
		lines = append(lines, fmt.Sprintf("amount out: %d", t.AmountOut))
	}
	if t.FailureReason != "" {
		lines = append(lines, fmt.Sprintf("failure reason: %s", t.FailureReason))
	}
	if t.CompensatedAmount > 0 {
		lines = append(lines, fmt.Sprintf("compensated amount: %d", t.CompensatedAmount))
	}
	return strings.Join(lines, "\n")
}

type transferList struct {
	Transfers []transfer `json:"transfers"`
}

func (l transferList) String() string {
	if len(l.Transfers) == 0 {
		return "no transfers found"
	}
	list := make([]string, 0, len(l.Transfers))
	for _, t := range l.Transfers {
		list = append(list, t.String())
	}
	return strings.Join(list, "\n\n")
}

type custodyEntry struct {
	Asset    string `json:"asset"`
	Domain   string `json:"domain"`
	Escrowed uint64 `json:"escrowed"`
}

type auditReport struct {
	Supplies        []supply       `json:"supplies"`
	CustodyBalances []custodyEntry `json:"custody_balances"`
	Violations      []supply       `json:"violations"`
	Clean           bool           `json:"clean"`
	AuditedAt       int64          `json:"audited_at"`
}

func (r auditReport) String() string {
	if r.Clean {
		return fmt.Sprintf("audit clean, %d supplies checked", len(r.Supplies))
	}
	list := make([]string, 0, len(r.Violations)+1)
	list = append(list, fmt.Sprintf("audit found %d violation(s):", len(r.Violations)))
	for _, v := range r.Violations {
		list = append(list, v.String())
	}
	return strings.Join(list, "\n")
}

func get[T any](url string) (result T, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%s", string(buf))
		return
	}

	err = json.Unmarshal(buf, &result)
	return
}

func post[T any](url, body, token string) (result T, err error) {
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	if len(token) > 0 {
		req.Header.Add("X-Operator-Token", token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err = fmt.Errorf("%s", string(buf))
		return
	}
	// endpoints answering 204 have nothing to decode
	if len(buf) == 0 {
		return
	}

	err = json.Unmarshal(buf, &result)
	return
}

func del(url, token string) error {
	req, err := http.NewRequest("DELETE", url, nil)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	if len(token) > 0 {
		req.Header.Add("X-Operator-Token", token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s", string(buf))
	}
	return nil
}
